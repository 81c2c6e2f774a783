package types

// Finish reason constants.
const (
	FinishReasonStop      = "stop"
	FinishReasonLength    = "length"
	FinishReasonToolCalls = "tool_calls"
	FinishReasonError     = "error"
)

// ChatCompletionResponse is an OpenAI-compatible chat completion response.
// The upstream endpoint returns the same shape, so this type is used both to
// decode upstream replies and to encode the reassembled response.
type ChatCompletionResponse struct {
	// ID is the completion identifier.
	ID string `json:"id"`

	// Object is "chat.completion".
	Object string `json:"object"`

	// Created is the Unix timestamp of creation.
	Created int64 `json:"created"`

	// Model is the model that produced the completion.
	Model string `json:"model"`

	// Choices holds the generated choices; the proxy only ever uses the first.
	Choices []Choice `json:"choices"`

	// Usage contains token counts when the upstream reports them.
	Usage *Usage `json:"usage,omitempty"`
}

// Choice is a single completion choice.
type Choice struct {
	// Index is the position of this choice.
	Index int `json:"index"`

	// Message is the generated message.
	Message Message `json:"message"`

	// FinishReason explains why generation stopped:
	// stop, length, tool_calls, or error.
	FinishReason string `json:"finish_reason"`
}

// Usage holds token accounting for one exchange.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Model is one entry in the /v1/models catalog.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// ModelList is the /v1/models response envelope.
type ModelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}
