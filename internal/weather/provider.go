// Package weather calls the fixed weather-data upstream.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/vyrodovalexey/apirelay/internal/config"
	"github.com/vyrodovalexey/apirelay/internal/observability"
	"github.com/vyrodovalexey/apirelay/internal/upstream"
)

// DefaultErrorMessage is used when an upstream error body carries no message.
const DefaultErrorMessage = "failed to fetch weather data"

// Sentinel errors for weather lookups.
var (
	// ErrMissingAPIKey indicates that no provider API key is configured.
	ErrMissingAPIKey = errors.New("weather API key is not configured")

	// ErrEmptyCity indicates that no city was given.
	ErrEmptyCity = errors.New("city is required")
)

// Doer performs one upstream call. *upstream.Client satisfies it.
type Doer interface {
	Do(ctx context.Context, req upstream.Request) (*upstream.Response, error)
}

// Provider fetches current weather for a city.
type Provider struct {
	client  Doer
	baseURL string
	apiKey  string
	units   string
	breaker *Breaker
	logger  observability.Logger
}

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithBreaker routes calls through b.
func WithBreaker(b *Breaker) Option {
	return func(p *Provider) {
		p.breaker = b
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// NewProvider creates a Provider from the weather configuration.
func NewProvider(client Doer, cfg config.WeatherConfig, opts ...Option) *Provider {
	p := &Provider{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		units:   cfg.Units,
		logger:  observability.NopLogger(),
	}
	if p.baseURL == "" {
		p.baseURL = config.DefaultWeatherBaseURL
	}
	if p.units == "" {
		p.units = config.DefaultWeatherUnits
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Configured reports whether an API key is set.
func (p *Provider) Configured() bool {
	return p.apiKey != ""
}

// URL returns the current-weather URL for city.
func (p *Provider) URL(city string) string {
	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", p.apiKey)
	q.Set("units", p.units)
	return p.baseURL + "/weather?" + q.Encode()
}

// Current fetches the current weather for city. Upstream status errors are
// returned as *upstream.StatusError along with the response.
func (p *Provider) Current(ctx context.Context, city string) (*upstream.Response, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, ErrEmptyCity
	}
	if !p.Configured() {
		return nil, ErrMissingAPIKey
	}

	p.logger.WithContext(ctx).Debug("fetching weather", observability.String("city", city))

	call := func() (*upstream.Response, error) {
		return p.client.Do(ctx, upstream.Request{
			Method: http.MethodGet,
			URL:    p.URL(city),
		})
	}

	if p.breaker != nil {
		return p.breaker.Call(ctx, call)
	}
	return call()
}

// ErrorMessage extracts the "message" field from an upstream error body,
// falling back to DefaultErrorMessage.
func ErrorMessage(resp *upstream.Response) string {
	if resp == nil {
		return DefaultErrorMessage
	}
	var body struct {
		Message interface{} `json:"message"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return DefaultErrorMessage
	}
	if msg, ok := body.Message.(string); ok && msg != "" {
		return msg
	}
	return DefaultErrorMessage
}
