// Package telemetry groups the proxy's observability concerns: prometheus
// metrics (telemetry/metrics) and background upstream probing
// (telemetry/health). Structured logging uses log/slog directly from each
// package.
package telemetry
