// Package proxy implements the protocol-translation pipeline between
// tool-calling clients and an upstream model without native tool support.
//
// The pipeline stages, in order:
//
//	FilterMessages    normalizes the inbound history for the upstream model
//	BuildToolPrompt   compiles the tool catalog into a call-syntax contract
//	InjectToolPrompt  places the compiled prompt as the single system message
//	ShouldStream      decides buffered vs. streamed relay per request
//	ExtractToolCalls  parses call markup out of a buffered reply
//	Reassemble        merges extracted calls into the outbound response
//
// Every stage is a pure function over request-scoped data; the package holds
// no cross-request state.
package proxy
