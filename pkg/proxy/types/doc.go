// Package types defines the OpenAI-compatible wire types used on both sides
// of the proxy: the tool-calling request format accepted from clients and the
// chat-completion response format returned to them. The upstream model speaks
// the same chat-completion format minus native tool support, so these types
// also decode upstream replies.
package types
