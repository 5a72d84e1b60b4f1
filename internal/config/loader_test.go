package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(vars map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadWithEnv_DefaultsOnly(t *testing.T) {
	t.Parallel()

	cfg, err := LoadWithEnv("", envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultUpstreamTimeout, cfg.Upstream.Timeout.Duration())
	assert.Equal(t, DefaultWeatherBaseURL, cfg.Weather.BaseURL)
	assert.Equal(t, "metric", cfg.Weather.Units)
	assert.Empty(t, cfg.Weather.APIKey)
	assert.False(t, cfg.WeatherConfigured())
	assert.NoError(t, ValidateConfig(cfg))
}

func TestLoadWithEnv_FileOverlay(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
server:
  port: 8080
upstream:
  timeout: 5s
weather:
  units: imperial
  circuit_breaker:
    threshold: 3
logging:
  level: debug
  format: console
`)

	cfg, err := LoadWithEnv(path, envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Upstream.Timeout.Duration())
	assert.Equal(t, "imperial", cfg.Weather.Units)
	assert.Equal(t, 3, cfg.Weather.Breaker.Threshold)
	// Fields not in the file keep their defaults.
	assert.True(t, cfg.Weather.Breaker.Enabled)
	assert.Equal(t, DefaultWeatherBaseURL, cfg.Weather.BaseURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadWithEnv_Substitution(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
weather:
  api_key: ${OWM_KEY}
  base_url: ${OWM_URL:-http://localhost:9999}
tracing:
  service_name: "cost$$center"
`)

	cfg, err := LoadWithEnv(path, envMap(map[string]string{"OWM_KEY": "secret"}))
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Weather.APIKey)
	assert.Equal(t, "http://localhost:9999", cfg.Weather.BaseURL)
	assert.Equal(t, "cost$center", cfg.Tracing.ServiceName)
}

func TestLoadWithEnv_EnvOverrides(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "server:\n  port: 8080\n")

	cfg, err := LoadWithEnv(path, envMap(map[string]string{
		"PORT":                   "9090",
		"WEATHER_API_KEY":        " abc ",
		"RELAY_ADDRESS":          "127.0.0.1",
		"RELAY_LOG_LEVEL":        "warn",
		"RELAY_LOG_FORMAT":       "console",
		"RELAY_UPSTREAM_TIMEOUT": "3",
		"RELAY_WEATHER_BASE_URL": "http://weather.test",
		"RELAY_METRICS_ENABLED":  "off",
		"RELAY_TRACING_ENABLED":  "yes",
		"RELAY_OTLP_ENDPOINT":    "otel:4317",
		"VAULT_ADDR":             "http://vault:8200",
		"VAULT_TOKEN":            "root",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Address)
	assert.Equal(t, "abc", cfg.Weather.APIKey)
	assert.True(t, cfg.WeatherConfigured())
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 3*time.Second, cfg.Upstream.Timeout.Duration())
	assert.Equal(t, "http://weather.test", cfg.Weather.BaseURL)
	assert.False(t, cfg.Metrics.Enabled)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "otel:4317", cfg.Tracing.OTLPEndpoint)
	assert.Equal(t, "http://vault:8200", cfg.Vault.Address)
	assert.Equal(t, "root", cfg.Vault.Token)
}

func TestLoadWithEnv_BlankEnvIgnored(t *testing.T) {
	t.Parallel()

	cfg, err := LoadWithEnv("", envMap(map[string]string{
		"PORT":            "",
		"WEATHER_API_KEY": "   ",
	}))
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.False(t, cfg.WeatherConfigured())
}

func TestLoadWithEnv_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		path    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "invalid port",
			env:     map[string]string{"PORT": "eighty"},
			wantErr: "PORT",
		},
		{
			name:    "invalid timeout",
			env:     map[string]string{"RELAY_UPSTREAM_TIMEOUT": "soon"},
			wantErr: "RELAY_UPSTREAM_TIMEOUT",
		},
		{
			name:    "missing file",
			path:    "/nonexistent/relay.yaml",
			wantErr: "failed to read config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := LoadWithEnv(tt.path, envMap(tt.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("server: [unclosed"), envMap(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParse_InvalidDuration(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("upstream:\n  timeout: later\n"), envMap(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Parallel()

	lookup := envMap(map[string]string{"A": "1", "EMPTY": ""})

	tests := []struct {
		in   string
		want string
	}{
		{in: "${A}", want: "1"},
		{in: "${MISSING}", want: ""},
		{in: "${MISSING:-fallback}", want: "fallback"},
		{in: "${EMPTY:-fallback}", want: ""},
		{in: "x-${A}-${A}", want: "x-1-1"},
		{in: "$${A}", want: "${A}"},
		{in: "plain", want: "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, substituteEnvVars(tt.in, lookup))
		})
	}
}

func TestParseBool(t *testing.T) {
	t.Parallel()

	assert.True(t, parseBool("TRUE", false))
	assert.True(t, parseBool("on", false))
	assert.False(t, parseBool("0", true))
	assert.False(t, parseBool("No", true))
	assert.True(t, parseBool("maybe", true))
	assert.False(t, parseBool("maybe", false))
}

func TestLoadWithEnv_SampleConfig(t *testing.T) {
	t.Parallel()

	cfg, err := LoadWithEnv(filepath.Join("..", "..", "configs", "relay.yaml"), envMap(map[string]string{
		"WEATHER_API_KEY": "k",
	}))
	require.NoError(t, err)
	require.NoError(t, ValidateConfig(cfg))

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, "k", cfg.Weather.APIKey)
	assert.Equal(t, "localhost:4317", cfg.Tracing.OTLPEndpoint)
	assert.False(t, cfg.Vault.Enabled)
}
