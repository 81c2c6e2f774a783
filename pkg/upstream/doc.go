// Package upstream implements the HTTP client for the upstream
// chat-completion endpoint. The upstream accepts ordinary chat messages but
// has no native tool-calling support, so the client only ever sends plain
// message histories: the tool catalog stays on the proxy side.
//
// The client is created once at process start, is read-only afterwards, and
// is shared by all request handlers without synchronization.
package upstream
