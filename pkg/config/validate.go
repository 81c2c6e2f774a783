package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for fatal problems. A missing upstream
// credential or base URL is a start-up error: the proxy cannot do anything
// useful without an upstream to dispatch to.
func Validate(cfg *Config) error {
	if cfg.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.base_url is required (set TOOLGATE_UPSTREAM_BASE_URL)")
	}

	u, err := url.Parse(cfg.Upstream.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("upstream.base_url %q is not a valid URL", cfg.Upstream.BaseURL)
	}

	if cfg.Upstream.APIKey == "" {
		return fmt.Errorf("upstream.api_key is required (set TOOLGATE_UPSTREAM_API_KEY)")
	}

	if cfg.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive")
	}

	if cfg.Server.ListenAddress == "" {
		return fmt.Errorf("server.listen_address is required")
	}

	switch strings.ToLower(cfg.Telemetry.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("telemetry.logging.level %q is not one of debug, info, warn, error",
			cfg.Telemetry.Logging.Level)
	}

	switch strings.ToLower(cfg.Telemetry.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("telemetry.logging.format %q is not one of json, text",
			cfg.Telemetry.Logging.Format)
	}

	if cfg.Defaults.Temperature < 0 || cfg.Defaults.Temperature > 2 {
		return fmt.Errorf("defaults.temperature must be between 0.0 and 2.0")
	}

	if cfg.Defaults.MaxTokens < 1 {
		return fmt.Errorf("defaults.max_tokens must be greater than 0")
	}

	return nil
}
