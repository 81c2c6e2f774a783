package proxy

import (
	"fmt"
	"log/slog"

	"toolgate/pkg/proxy/types"
)

// FilterMessages rewrites the inbound conversation into one the upstream
// model can follow. Per message, in original order:
//
//   - system and user messages pass through unchanged
//   - assistant messages that carry tool calls but no text are dropped
//     (the upstream regenerates calls itself; an empty assistant turn would
//     desynchronize its chain of thought)
//   - other assistant messages keep only their text content
//   - tool results become user messages of the form
//     "Function <name> returned: <content>", since the upstream does not
//     understand the tool role
//
// The function is idempotent: its output contains no tool roles and no empty
// tool-call assistant turns, so a second pass changes nothing.
func FilterMessages(messages []types.Message) []types.Message {
	filtered := make([]types.Message, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem, types.RoleUser:
			filtered = append(filtered, msg)

		case types.RoleAssistant:
			if len(msg.ToolCalls) > 0 && msg.Content == "" {
				slog.Debug("dropping empty assistant tool-call turn",
					"tool_calls", len(msg.ToolCalls),
				)
				continue
			}
			filtered = append(filtered, types.Message{
				Role:    types.RoleAssistant,
				Content: msg.Content,
			})

		case types.RoleTool:
			name := msg.Name
			if name == "" {
				name = "unknown"
			}
			filtered = append(filtered, types.Message{
				Role:    types.RoleUser,
				Content: fmt.Sprintf("Function %s returned: %s", name, msg.Content),
			})
			slog.Debug("rewrote tool result as user message", "tool", name)
		}
	}

	return filtered
}

// HasToolResult reports whether the original history already contains a tool
// result. Its presence marks a follow-up turn: the model has been given a
// function result and is expected to answer in natural language.
func HasToolResult(messages []types.Message) bool {
	for _, msg := range messages {
		if msg.Role == types.RoleTool {
			return true
		}
	}
	return false
}
