// Package relay implements the HTTP handlers of the relay: the universal
// proxy, the weather endpoint, the static catalogs, health and the
// unmatched-route fallback.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/apirelay/internal/observability"
	"github.com/vyrodovalexey/apirelay/internal/projection"
	"github.com/vyrodovalexey/apirelay/internal/upstream"
)

// Route paths.
const (
	PathHealth        = "/health"
	PathProxy         = "/api/proxy"
	PathWeather       = "/api/weather"
	PathWeatherFields = "/api/weather/fields"
	PathAvailableAPIs = "/api/available-apis"
)

// Doer performs one outbound call. *upstream.Client satisfies it.
type Doer interface {
	Do(ctx context.Context, req upstream.Request) (*upstream.Response, error)
}

// WeatherSource fetches current weather. *weather.Provider satisfies it.
type WeatherSource interface {
	Configured() bool
	Current(ctx context.Context, city string) (*upstream.Response, error)
}

// Handler serves the relay endpoints.
type Handler struct {
	proxy     Doer
	weather   WeatherSource
	projector *projection.Projector
	logger    observability.Logger
	now       func() time.Time
}

// Option is a functional option for configuring the Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithClock sets the time source used for health timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		h.now = now
	}
}

// NewHandler creates a Handler.
func NewHandler(proxy Doer, weather WeatherSource, opts ...Option) *Handler {
	h := &Handler{
		proxy:   proxy,
		weather: weather,
		logger:  observability.NopLogger(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(h)
	}
	h.projector = projection.NewProjector(h.logger)

	return h
}

// Register mounts the relay routes and the unmatched-route fallback on engine.
func (h *Handler) Register(engine *gin.Engine) {
	engine.GET(PathHealth, h.health)
	engine.POST(PathProxy, h.handleProxy)
	engine.POST(PathWeather, h.handleWeather)
	engine.GET(PathWeatherFields, h.weatherFields)
	engine.GET(PathAvailableAPIs, h.availableAPIs)

	notFound := h.notFound(engine)
	engine.NoRoute(notFound)
	engine.NoMethod(notFound)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"message":   "API relay is running",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

// notFound lists every registered route. Routes are read per request so
// that routes added after Register (such as /metrics) are included.
func (h *Handler) notFound(engine *gin.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success":             false,
			"error":               "route not found",
			"path":                c.Request.URL.Path,
			"available_endpoints": availableEndpoints(engine.Routes()),
		})
	}
}

func availableEndpoints(routes gin.RoutesInfo) []string {
	out := make([]string, 0, len(routes))
	for _, r := range routes {
		out = append(out, r.Method+" "+r.Path)
	}
	sort.Strings(out)
	return out
}

// decodeBody decodes a JSON request body into v. An empty body leaves v
// untouched.
func decodeBody(c *gin.Context, v interface{}) error {
	if c.Request.Body == nil {
		return nil
	}
	err := json.NewDecoder(c.Request.Body).Decode(v)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	default:
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &Error{
				Kind:    KindValidation,
				Status:  http.StatusRequestEntityTooLarge,
				Message: "request body too large",
				Cause:   err,
			}
		}
		return &Error{Kind: KindValidation, Message: "request body must be a JSON object", Cause: err}
	}
}
