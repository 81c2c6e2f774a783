package proxy

import "toolgate/pkg/proxy/types"

// ShouldStream decides whether the exchange may be relayed as a live byte
// stream or must be executed as a buffered call. It inspects the ORIGINAL
// (pre-transform) history, the tool catalog, and the client's stream flag:
//
//   - no tools: the client's wish stands
//   - tools present and a tool result already in history: this is the
//     follow-up turn, the model answers in natural language, streaming is safe
//   - tools present on the first turn: buffered, regardless of the flag,
//     because call markup must be fully received before it can be parsed
func ShouldStream(original []types.Message, tools []types.Tool, clientStream bool) bool {
	if !clientStream {
		return false
	}

	if len(tools) == 0 {
		return true
	}

	return HasToolResult(original)
}
