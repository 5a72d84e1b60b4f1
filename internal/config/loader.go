package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// LookupFunc resolves an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Load builds the configuration: defaults, then the YAML file at path (if
// path is not empty), then environment overrides.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment lookup.
func LoadWithEnv(path string, lookup LookupFunc) (*Config, error) {
	cfg := Default()

	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
		}
		data, err := os.ReadFile(absPath) //nolint:gosec // operator-supplied config path
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := parseInto(cfg, data, lookup); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse overlays YAML data on the defaults without consulting the environment
// beyond ${VAR} substitution.
func Parse(data []byte, lookup LookupFunc) (*Config, error) {
	cfg := Default()
	if err := parseInto(cfg, data, lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseInto(cfg *Config, data []byte, lookup LookupFunc) error {
	content := substituteEnvVars(string(data), lookup)
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// substituteEnvVars replaces ${VAR} and ${VAR:-default} patterns. "$$"
// escapes a literal dollar sign.
func substituteEnvVars(content string, lookup LookupFunc) string {
	const escaped = "\x00ESCAPED_DOLLAR\x00"
	content = strings.ReplaceAll(content, "$$", escaped)

	result := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}
		if value, ok := lookup(submatches[1]); ok {
			return value
		}
		if len(submatches) >= 3 {
			return submatches[2]
		}
		return ""
	})

	return strings.ReplaceAll(result, escaped, "$")
}

// applyEnv applies environment overrides. Only variables that are set and
// non-empty take effect.
func applyEnv(cfg *Config, lookup LookupFunc) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return strings.TrimSpace(v), true
	}

	if v, ok := get("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: invalid port %q", v)
		}
		cfg.Server.Port = port
	}
	if v, ok := get("RELAY_ADDRESS"); ok {
		cfg.Server.Address = v
	}
	if v, ok := get("WEATHER_API_KEY"); ok {
		cfg.Weather.APIKey = v
	}
	if v, ok := get("RELAY_WEATHER_BASE_URL"); ok {
		cfg.Weather.BaseURL = v
	}
	if v, ok := get("RELAY_UPSTREAM_TIMEOUT"); ok {
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RELAY_UPSTREAM_TIMEOUT: %w", err)
		}
		cfg.Upstream.Timeout = d
	}
	if v, ok := get("RELAY_LOG_LEVEL"); ok {
		cfg.Logging.Level = v
	}
	if v, ok := get("RELAY_LOG_FORMAT"); ok {
		cfg.Logging.Format = v
	}
	if v, ok := get("RELAY_METRICS_ENABLED"); ok {
		cfg.Metrics.Enabled = parseBool(v, cfg.Metrics.Enabled)
	}
	if v, ok := get("RELAY_TRACING_ENABLED"); ok {
		cfg.Tracing.Enabled = parseBool(v, cfg.Tracing.Enabled)
	}
	if v, ok := get("RELAY_OTLP_ENDPOINT"); ok {
		cfg.Tracing.OTLPEndpoint = v
	}
	if v, ok := get("VAULT_ADDR"); ok {
		cfg.Vault.Address = v
	}
	if v, ok := get("VAULT_TOKEN"); ok {
		cfg.Vault.Token = v
	}

	return nil
}

// parseBool accepts "true", "1", "yes", "on" and their negations
// (case-insensitive); anything else yields def.
func parseBool(value string, def bool) bool {
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return def
	}
}
