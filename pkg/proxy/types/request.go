package types

import "fmt"

// Message role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatCompletionRequest is an OpenAI-compatible chat completion request.
// It matches the OpenAI Chat Completions API format so existing SDKs and
// agent frameworks can point at the proxy unchanged.
type ChatCompletionRequest struct {
	// Model is the ID of the model to use.
	Model string `json:"model"`

	// Messages is the conversation history in order.
	Messages []Message `json:"messages"`

	// Temperature controls randomness (0.0 to 2.0). Optional.
	Temperature *float64 `json:"temperature,omitempty"`

	// MaxTokens is the maximum number of tokens to generate. Optional.
	MaxTokens *int `json:"max_tokens,omitempty"`

	// TopP controls nucleus sampling (0.0 to 1.0). Optional.
	TopP *float64 `json:"top_p,omitempty"`

	// Stream enables server-sent events streaming. The proxy may downgrade
	// a streaming request to a buffered one when call markup must be parsed.
	Stream bool `json:"stream,omitempty"`

	// Stop is a list of sequences that halt generation. Optional.
	Stop []string `json:"stop,omitempty"`

	// User is an end-user identifier forwarded upstream. Optional.
	User string `json:"user,omitempty"`

	// Tools is the catalog of functions the model may call. Optional.
	// The catalog itself is never forwarded upstream; it is compiled into
	// a system prompt instead.
	Tools []Tool `json:"tools,omitempty"`

	// ToolChoice is accepted for wire compatibility but not interpreted:
	// the upstream model has no native tool support to steer.
	ToolChoice interface{} `json:"tool_choice,omitempty"`
}

// Message is a single turn in a conversation.
type Message struct {
	// Role is the author of the message: system, user, assistant, or tool.
	Role string `json:"role"`

	// Content is the text content. JSON null decodes to the empty string.
	Content string `json:"content"`

	// Name identifies the tool whose result this message carries.
	// Required when Role is "tool".
	Name string `json:"name,omitempty"`

	// ToolCalls are the structured calls an assistant turn requested.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID references the call a tool-role message responds to.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// Tool is a callable function definition owned by one request.
type Tool struct {
	// Type is always "function".
	Type string `json:"type"`

	// Function describes the callable.
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes a function the model can request.
type FunctionDefinition struct {
	// Name is the function name.
	Name string `json:"name"`

	// Description explains what the function does.
	Description string `json:"description,omitempty"`

	// Parameters is a JSON-schema-shaped object describing the arguments.
	Parameters map[string]interface{} `json:"parameters"`
}

// ToolCall is a structured function invocation requested by the model.
// The proxy mints the ID; the upstream model only ever emits text markup.
type ToolCall struct {
	// ID uniquely identifies the call within one response.
	ID string `json:"id"`

	// Type is always "function".
	Type string `json:"type"`

	// Function holds the name and serialized arguments.
	Function FunctionCall `json:"function"`
}

// FunctionCall is the name/arguments pair of a tool call.
type FunctionCall struct {
	// Name is the function to invoke.
	Name string `json:"name"`

	// Arguments is a JSON-encoded object of call arguments.
	Arguments string `json:"arguments"`
}

// Validate checks required fields and rejects illegal role combinations at
// the boundary, so the pipeline never sees a malformed message.
func (r *ChatCompletionRequest) Validate() error {
	if r.Model == "" {
		return &ValidationError{Field: "model", Message: "model is required"}
	}

	if len(r.Messages) == 0 {
		return &ValidationError{Field: "messages", Message: "messages must contain at least one message"}
	}

	if r.Temperature != nil && (*r.Temperature < 0.0 || *r.Temperature > 2.0) {
		return &ValidationError{Field: "temperature", Message: "temperature must be between 0.0 and 2.0"}
	}

	if r.TopP != nil && (*r.TopP < 0.0 || *r.TopP > 1.0) {
		return &ValidationError{Field: "top_p", Message: "top_p must be between 0.0 and 1.0"}
	}

	if r.MaxTokens != nil && *r.MaxTokens < 1 {
		return &ValidationError{Field: "max_tokens", Message: "max_tokens must be greater than 0"}
	}

	for i, msg := range r.Messages {
		field := fmt.Sprintf("messages[%d]", i)

		switch msg.Role {
		case RoleSystem, RoleUser, RoleAssistant:
			// ok
		case RoleTool:
			if msg.Name == "" {
				return &ValidationError{
					Field:   field + ".name",
					Message: "tool messages must carry the tool name",
				}
			}
			if msg.Content == "" {
				return &ValidationError{
					Field:   field + ".content",
					Message: "tool messages must carry the tool result content",
				}
			}
		case "":
			return &ValidationError{Field: field + ".role", Message: "message role is required"}
		default:
			return &ValidationError{
				Field:   field + ".role",
				Message: fmt.Sprintf("unknown role %q", msg.Role),
			}
		}
	}

	for i, tool := range r.Tools {
		if tool.Function.Name == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("tools[%d].function.name", i),
				Message: "tool function name is required",
			}
		}
	}

	return nil
}

// ValidationError reports a request field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Message
}
