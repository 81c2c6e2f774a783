package proxy

import (
	"errors"
	"fmt"
	"log/slog"

	"toolgate/pkg/proxy/types"
	"toolgate/pkg/upstream"
)

// HandleError maps pipeline errors to OpenAI-compatible error responses:
// request errors to 400, upstream transport and shape failures to 502, and
// anything else to a generic 500. Upstream detail is forwarded with enough
// context to diagnose, but a shape failure's raw body is only logged, never
// sent to the caller.
func HandleError(err error) *types.ErrorResponse {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.ToErrorResponse()
	}

	var transportErr *upstream.TransportError
	if errors.As(err, &transportErr) {
		return types.NewBadGatewayError(
			fmt.Sprintf("upstream request failed: %s", transportErr.Error()),
			types.CodeUpstreamError,
		)
	}

	var shapeErr *upstream.ShapeError
	if errors.As(err, &shapeErr) {
		slog.Error("upstream returned unusable response body",
			"error", shapeErr.Message,
			"raw_body", truncate(shapeErr.RawBody, 2000),
		)
		return types.NewBadGatewayError(
			fmt.Sprintf("invalid response from upstream: %s", shapeErr.Message),
			types.CodeUpstreamShape,
		)
	}

	var streamErr *upstream.StreamError
	if errors.As(err, &streamErr) {
		return types.NewBadGatewayError(streamErr.Error(), types.CodeUpstreamError)
	}

	slog.Error("unhandled pipeline error", "error", err)
	return types.NewServerError("An internal error occurred. Please try again later.")
}
