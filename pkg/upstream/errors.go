package upstream

import "fmt"

// TransportError reports a network failure, timeout, or non-2xx status from
// the upstream endpoint. It maps to a 502 at the proxy boundary and is never
// retried here; retries belong to the external caller.
type TransportError struct {
	// StatusCode is the upstream HTTP status (0 for network failures).
	StatusCode int

	// Message is the upstream error detail.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream error: %s", e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// ShapeError reports an upstream 2xx reply whose body lacks a usable choices
// entry. The raw body is logged for diagnosis but never forwarded verbatim
// to the caller.
type ShapeError struct {
	// Message describes what was missing.
	Message string

	// RawBody is the offending response body, kept for logging only.
	RawBody string
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	return fmt.Sprintf("invalid upstream response: %s", e.Message)
}

// StreamError reports a failure while relaying a live upstream stream. It
// terminates the client stream; the proxy never falls back to a buffered
// retrieval mid-stream.
type StreamError struct {
	// Message describes the failure.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("upstream stream error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("upstream stream error: %s", e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *StreamError) Unwrap() error {
	return e.Cause
}
