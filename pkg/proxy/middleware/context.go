// Package middleware provides the HTTP middleware chain for the proxy:
// request-id propagation, structured request logging, and panic recovery.
package middleware

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

const (
	// RequestIDKey stores the unique request ID.
	RequestIDKey contextKey = "request_id"
)
