package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

var (
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"json": true, "console": true}
)

// ValidateConfig validates a relay configuration.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return ValidationErrors{{Message: "configuration is nil"}}
	}

	var errs ValidationErrors
	add := func(path, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		add("server.port", "must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxRequestBodySize < 0 {
		add("server.max_request_body_size", "must not be negative")
	}
	if cfg.Server.ShutdownTimeout < 0 {
		add("server.shutdown_timeout", "must not be negative")
	}

	if cfg.Upstream.Timeout <= 0 {
		add("upstream.timeout", "must be positive")
	}
	// Zero disables the server write deadline.
	if cfg.Upstream.Timeout > 0 && cfg.Server.WriteTimeout > 0 && cfg.Server.WriteTimeout <= cfg.Upstream.Timeout {
		add("server.write_timeout", "must exceed upstream.timeout (%s), got %s",
			cfg.Upstream.Timeout.Duration(), cfg.Server.WriteTimeout.Duration())
	}
	if cfg.Upstream.MaxResponseBytes <= 0 {
		add("upstream.max_response_bytes", "must be positive")
	}

	if u, err := url.Parse(cfg.Weather.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		add("weather.base_url", "must be an absolute URL, got %q", cfg.Weather.BaseURL)
	}
	if cfg.Weather.Breaker.Enabled {
		if cfg.Weather.Breaker.Threshold < 1 {
			add("weather.circuit_breaker.threshold", "must be at least 1")
		}
		if cfg.Weather.Breaker.Timeout <= 0 {
			add("weather.circuit_breaker.timeout", "must be positive")
		}
	}

	if !validLogLevels[cfg.Logging.Level] {
		add("logging.level", "unknown level %q", cfg.Logging.Level)
	}
	if !validLogFormats[cfg.Logging.Format] {
		add("logging.format", "unknown format %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		add("metrics.path", "must start with /")
	}

	if cfg.Tracing.SamplingRate < 0 || cfg.Tracing.SamplingRate > 1 {
		add("tracing.sampling_rate", "must be between 0 and 1")
	}

	if cfg.Vault.Enabled {
		if cfg.Vault.Address == "" {
			add("vault.address", "is required when vault is enabled")
		}
		if cfg.Vault.Path == "" {
			add("vault.path", "is required when vault is enabled")
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
