package config

import "time"

// Default values.
const (
	DefaultPort               = 3000
	DefaultUpstreamTimeout    = 10 * time.Second
	DefaultMaxResponseBytes   = 10 << 20
	DefaultMaxRequestBodySize = 1 << 20
	DefaultWeatherBaseURL     = "https://api.openweathermap.org/data/2.5"
	DefaultWeatherUnits       = "metric"
	DefaultMetricsPath        = "/metrics"
	DefaultVaultMount         = "secret"
	DefaultVaultKey           = "weather_api_key"
)

// Config is the complete relay configuration. It is built once at startup
// and passed by pointer to the components that need it.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Weather  WeatherConfig  `yaml:"weather"`
	CORS     CORSConfig     `yaml:"cors"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Vault    VaultConfig    `yaml:"vault"`
}

// ServerConfig configures the inbound HTTP listener.
type ServerConfig struct {
	Address            string   `yaml:"address"`
	Port               int      `yaml:"port"`
	ReadTimeout        Duration `yaml:"read_timeout"`
	WriteTimeout       Duration `yaml:"write_timeout"`
	IdleTimeout        Duration `yaml:"idle_timeout"`
	ShutdownTimeout    Duration `yaml:"shutdown_timeout"`
	MaxRequestBodySize int64    `yaml:"max_request_body_size"`
}

// UpstreamConfig configures outbound calls.
type UpstreamConfig struct {
	Timeout          Duration `yaml:"timeout"`
	MaxResponseBytes int64    `yaml:"max_response_bytes"`
}

// WeatherConfig configures the fixed weather provider.
type WeatherConfig struct {
	// APIKey is the provider secret. Empty means not configured; the
	// weather endpoint then fails with a configuration error.
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Units   string        `yaml:"units"`
	Breaker BreakerConfig `yaml:"circuit_breaker"`
}

// BreakerConfig configures the weather circuit breaker.
type BreakerConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Threshold int      `yaml:"threshold"`
	Timeout   Duration `yaml:"timeout"`
}

// CORSConfig configures cross-origin access.
type CORSConfig struct {
	AllowOrigins []string `yaml:"allow_origins"`
	AllowMethods []string `yaml:"allow_methods"`
	AllowHeaders []string `yaml:"allow_headers"`
	MaxAge       int      `yaml:"max_age"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// VaultConfig configures the optional Vault KV v2 lookup of the weather key.
type VaultConfig struct {
	Enabled bool     `yaml:"enabled"`
	Address string   `yaml:"address"`
	Token   string   `yaml:"token"`
	Mount   string   `yaml:"mount"`
	Path    string   `yaml:"path"`
	Key     string   `yaml:"key"`
	Timeout Duration `yaml:"timeout"`
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               DefaultPort,
			ReadTimeout:        Duration(30 * time.Second),
			WriteTimeout:       Duration(30 * time.Second),
			IdleTimeout:        Duration(120 * time.Second),
			ShutdownTimeout:    Duration(15 * time.Second),
			MaxRequestBodySize: DefaultMaxRequestBodySize,
		},
		Upstream: UpstreamConfig{
			Timeout:          Duration(DefaultUpstreamTimeout),
			MaxResponseBytes: DefaultMaxResponseBytes,
		},
		Weather: WeatherConfig{
			BaseURL: DefaultWeatherBaseURL,
			Units:   DefaultWeatherUnits,
			Breaker: BreakerConfig{
				Enabled:   true,
				Threshold: 5,
				Timeout:   Duration(30 * time.Second),
			},
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET", "POST", "PUT", "DELETE"},
			AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
			MaxAge:       86400,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
		Tracing: TracingConfig{
			ServiceName:  "apirelay",
			SamplingRate: 1.0,
		},
		Vault: VaultConfig{
			Mount:   DefaultVaultMount,
			Path:    "apirelay",
			Key:     DefaultVaultKey,
			Timeout: Duration(5 * time.Second),
		},
	}
}

// WeatherConfigured reports whether a weather API key is available.
func (c *Config) WeatherConfigured() bool {
	return c.Weather.APIKey != ""
}
