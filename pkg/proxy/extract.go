package proxy

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"toolgate/pkg/proxy/types"
)

const (
	// maxCallBlocks caps how many markup blocks are scanned in one reply.
	maxCallBlocks = 16

	// maxCallBlockBytes caps the size of a single block body. Both bounds
	// guard against pathological output from an adversarial upstream.
	maxCallBlockBytes = 64 * 1024
)

// callBlockPattern matches one <function_call> block and captures the JSON
// object inside it. (?s) lets the object span lines. The non-greedy body
// keeps adjacent blocks separate. This is a deliberate lightweight grammar,
// not a general parser.
var callBlockPattern = regexp.MustCompile(`(?s)<function_call>\s*(\{.*?\})\s*</function_call>`)

// callPayload is the JSON object the upstream model emits inside a block.
// Both keys are required; Arguments must be a JSON object.
type callPayload struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ExtractToolCalls locates every call-markup block in a buffered reply and
// converts the well-formed ones into structured tool calls. A block with
// malformed JSON or a missing required key is skipped with a warning;
// extraction continues over the remaining blocks and the skipped count is
// returned for instrumentation. A nil call slice means the reply contains no
// usable calls and its text should pass through untouched.
//
// Call ids are freshly minted uuids, so two calls with identical arguments
// still get distinct ids.
func ExtractToolCalls(content string) (calls []types.ToolCall, skipped int) {
	if content == "" || !strings.Contains(content, "<function_call>") {
		return nil, 0
	}

	matches := callBlockPattern.FindAllStringSubmatch(content, maxCallBlocks)
	if matches == nil {
		return nil, 0
	}

	for _, match := range matches {
		block := match[1]

		if len(block) > maxCallBlockBytes {
			slog.Warn("skipping oversized function_call block", "bytes", len(block))
			skipped++
			continue
		}

		var payload callPayload
		if err := json.Unmarshal([]byte(block), &payload); err != nil {
			slog.Warn("skipping malformed function_call block",
				"error", err,
				"block", truncate(block, 200),
			)
			skipped++
			continue
		}

		if payload.Name == "" || len(payload.Arguments) == 0 {
			slog.Warn("skipping function_call block with missing fields",
				"block", truncate(block, 200),
			)
			skipped++
			continue
		}

		var argObj map[string]interface{}
		if err := json.Unmarshal(payload.Arguments, &argObj); err != nil || argObj == nil {
			slog.Warn("skipping function_call block with non-object arguments",
				"block", truncate(block, 200),
			)
			skipped++
			continue
		}

		calls = append(calls, types.ToolCall{
			ID:   "call_" + uuid.NewString(),
			Type: "function",
			Function: types.FunctionCall{
				Name:      payload.Name,
				Arguments: string(payload.Arguments),
			},
		})
	}

	return calls, skipped
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
