package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"

	"toolgate/pkg/proxy/types"
)

// Reassemble merges extracted tool calls into the upstream response, in
// place. With one or more calls the first choice's content is cleared, its
// tool_calls are set, and finish_reason becomes "tool_calls". With none the
// upstream message passes through unmodified, defaulting finish_reason to
// "stop" when the upstream left it empty.
func Reassemble(resp *types.ChatCompletionResponse, calls []types.ToolCall) {
	if len(resp.Choices) == 0 {
		return
	}

	choice := &resp.Choices[0]

	if len(calls) > 0 {
		choice.Message.Content = ""
		choice.Message.ToolCalls = calls
		choice.FinishReason = types.FinishReasonToolCalls
		return
	}

	if choice.FinishReason == "" {
		choice.FinishReason = types.FinishReasonStop
	}
}

// WriteJSONResponse writes data as a JSON response with the given status.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}
	return nil
}

// WriteErrorResponse writes an OpenAI-compatible error response with the
// status code implied by its error type.
func WriteErrorResponse(w http.ResponseWriter, errResp *types.ErrorResponse) error {
	return WriteJSONResponse(w, errResp.Error.HTTPStatusCode(), errResp)
}

// SetSSEHeaders sets the headers for a streamed event-body response.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}
