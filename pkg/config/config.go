// Package config defines the proxy configuration, loaded once at start-up
// from an optional YAML file plus TOOLGATE_* environment overrides. The
// resulting Config is immutable after Load returns and is passed by reference
// into the server and dispatcher; there are no process-wide mutable globals.
package config

import "time"

// Config is the root configuration for the toolgate proxy.
type Config struct {
	// Server contains HTTP listener settings.
	Server ServerConfig `yaml:"server"`

	// Upstream contains the upstream chat-completion endpoint settings.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Defaults contains sampling defaults applied when the client omits them.
	Defaults GenerationDefaults `yaml:"defaults"`

	// Telemetry contains logging and metrics settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "0.0.0.0:8000"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing the response.
	// Streamed relays are bounded by the upstream timeout instead.
	// Default: 120s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// UpstreamConfig contains the upstream endpoint configuration. The upstream
// speaks the plain chat-completion format and has no native tool support.
type UpstreamConfig struct {
	// BaseURL is the upstream API base, e.g. "http://10.0.0.5:5000/v1".
	BaseURL string `yaml:"base_url"`

	// APIKey is the bearer credential forwarded upstream.
	// Required; start-up fails without it.
	APIKey string `yaml:"api_key"`

	// Model is the single model id the proxy advertises and defaults to.
	// Default: "deepseek-chat"
	Model string `yaml:"model"`

	// Timeout bounds one buffered upstream call. On a streamed relay it
	// bounds the wait between chunks instead of the whole stream, so a
	// flowing stream may run longer while a stalled one is cut off.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// ProbeSchedule is the cron schedule for background reachability probes.
	// Default: "@every 30s"
	ProbeSchedule string `yaml:"probe_schedule"`
}

// GenerationDefaults are applied to upstream calls when the client request
// leaves the field unset.
type GenerationDefaults struct {
	// Temperature default. Default: 0.7
	Temperature float64 `yaml:"temperature"`

	// MaxTokens default. Default: 2000
	MaxTokens int `yaml:"max_tokens"`
}

// TelemetryConfig contains observability settings.
type TelemetryConfig struct {
	// Logging contains structured logging settings.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains prometheus settings.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures the slog logger.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig configures the prometheus endpoint.
type MetricsConfig struct {
	// Enabled controls whether /metrics is served.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Namespace is the metric name prefix.
	// Default: "toolgate"
	Namespace string `yaml:"namespace"`
}
