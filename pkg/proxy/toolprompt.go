package proxy

import (
	"encoding/json"
	"fmt"
	"strings"

	"toolgate/pkg/proxy/types"
)

// toolPromptContract is the fixed protocol contract appended after the tool
// catalog. It teaches the upstream model the exact in-text call syntax the
// extractor understands and forbids reissuing a call after its result.
const toolPromptContract = `CRITICAL RULES FOR CALLING FUNCTIONS:
1. When you need to call a function, output ONLY this XML format:
<function_call>
{"name": "function_name", "arguments": {"param": "value"}}
</function_call>

2. DO NOT add any text before or after the XML block
3. DO NOT explain what you're doing
4. DO NOT say "I will call" or "Let me use" - just output the XML directly
5. The JSON inside XML must be valid

EXAMPLES:
User: "What's the weather in Beijing?"
Your response:
<function_call>
{"name": "get_weather", "arguments": {"city": "Beijing"}}
</function_call>

User: "Call myecho with text HELLO"
Your response:
<function_call>
{"name": "myecho", "arguments": {"text": "HELLO"}}
</function_call>

IMPORTANT: After a function is called and you receive the result, provide a natural language response to the user based on the function result. DO NOT call the function again.`

// BuildToolPrompt renders the request's tool catalog into one system-prompt
// string: each tool's name, description, and parameter schema, followed by
// the call-syntax contract.
func BuildToolPrompt(tools []types.Tool) string {
	descriptions := make([]string, 0, len(tools))

	for _, tool := range tools {
		fn := tool.Function

		params, err := json.MarshalIndent(fn.Parameters, "", "  ")
		if err != nil {
			// Schemas come from decoded JSON, so this should not happen;
			// fall back to an empty object rather than dropping the tool.
			params = []byte("{}")
		}

		descriptions = append(descriptions, fmt.Sprintf(
			"## %s\nDescription: %s\nParameters: %s",
			fn.Name, fn.Description, params,
		))
	}

	return fmt.Sprintf(
		"You are a helpful assistant with access to the following functions:\n\n%s\n\n%s",
		strings.Join(descriptions, "\n\n"),
		toolPromptContract,
	)
}

// InjectToolPrompt places prompt as the conversation's single system message.
// The first existing system message has its content replaced; if none exists
// the prompt is inserted at position 0. Exactly one system message exists
// afterwards whenever the request carries tools.
func InjectToolPrompt(messages []types.Message, prompt string) []types.Message {
	for i, msg := range messages {
		if msg.Role == types.RoleSystem {
			out := make([]types.Message, len(messages))
			copy(out, messages)
			out[i] = types.Message{Role: types.RoleSystem, Content: prompt}
			return out
		}
	}

	out := make([]types.Message, 0, len(messages)+1)
	out = append(out, types.Message{Role: types.RoleSystem, Content: prompt})
	out = append(out, messages...)
	return out
}
