package upstream

import "toolgate/pkg/proxy/types"

// ChatRequest is the body sent to the upstream chat-completions endpoint.
// It deliberately has no tools field: call syntax is taught through the
// system prompt instead, and the upstream would reject or ignore a catalog.
type ChatRequest struct {
	// Model is the upstream model id.
	Model string `json:"model"`

	// Messages is the transformed conversation.
	Messages []types.Message `json:"messages"`

	// Temperature is the sampling temperature.
	Temperature float64 `json:"temperature"`

	// MaxTokens bounds the completion length.
	MaxTokens int `json:"max_tokens"`

	// TopP controls nucleus sampling when non-zero.
	TopP float64 `json:"top_p,omitempty"`

	// Stop sequences halt generation.
	Stop []string `json:"stop,omitempty"`

	// Stream selects the relay mode resolved by the streaming decision,
	// which may differ from what the client asked for.
	Stream bool `json:"stream"`
}
