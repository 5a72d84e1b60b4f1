package relay

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/apirelay/internal/upstream"
	"github.com/vyrodovalexey/apirelay/internal/weather"
)

// WeatherRequest is the body of POST /api/weather.
type WeatherRequest struct {
	City   string   `json:"city"`
	Fields []string `json:"fields,omitempty"`
}

const msgWeatherUnavailable = "weather service unavailable"

func (h *Handler) handleWeather(c *gin.Context) {
	var req WeatherRequest
	if err := decodeBody(c, &req); err != nil {
		h.respondError(c, err, nil)
		return
	}

	city := strings.TrimSpace(req.City)
	if city == "" {
		h.respondError(c, NewValidationError(weather.ErrEmptyCity.Error()), nil)
		return
	}
	extra := gin.H{"city": city}

	if h.weather == nil || !h.weather.Configured() {
		h.respondError(c, NewConfigurationError(weather.ErrMissingAPIKey.Error(), nil), extra)
		return
	}

	ctx := c.Request.Context()
	resp, err := h.weather.Current(ctx, city)
	if err != nil {
		h.respondError(c, classifyWeather(err, resp), extra)
		return
	}

	respondSuccess(c, resp.StatusCode, gin.H{
		"city": city,
		"data": h.projector.Project(ctx, resp.Data(), req.Fields),
	})
}

// classifyWeather is classifyUpstream with the provider's error message in
// place of the generic one and without the raw upstream body.
func classifyWeather(err error, resp *upstream.Response) *Error {
	switch {
	case errors.Is(err, weather.ErrEmptyCity):
		return NewValidationError(err.Error())
	case errors.Is(err, weather.ErrMissingAPIKey):
		return NewConfigurationError(err.Error(), nil)
	}

	relayErr := classifyUpstream(err)
	switch relayErr.Kind {
	case KindUpstream:
		relayErr.Message = weather.ErrorMessage(resp)
		relayErr.Details = nil
	case KindUnreachable:
		relayErr.Message = msgWeatherUnavailable
	}
	return relayErr
}
