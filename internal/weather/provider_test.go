package weather

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/apirelay/internal/config"
	"github.com/vyrodovalexey/apirelay/internal/upstream"
)

func TestNewProvider_Defaults(t *testing.T) {
	t.Parallel()

	p := NewProvider(nil, config.WeatherConfig{})
	assert.False(t, p.Configured())
	assert.Equal(t, config.DefaultWeatherBaseURL, p.baseURL)
	assert.Equal(t, config.DefaultWeatherUnits, p.units)
}

func TestProvider_URL(t *testing.T) {
	t.Parallel()

	p := NewProvider(nil, config.WeatherConfig{
		APIKey:  "k&1",
		BaseURL: "http://weather.test/data/2.5/",
		Units:   "imperial",
	})

	u, err := url.Parse(p.URL("São Paulo"))
	require.NoError(t, err)
	assert.Equal(t, "weather.test", u.Host)
	assert.Equal(t, "/data/2.5/weather", u.Path)
	assert.Equal(t, "São Paulo", u.Query().Get("q"))
	assert.Equal(t, "k&1", u.Query().Get("appid"))
	assert.Equal(t, "imperial", u.Query().Get("units"))
}

func TestProvider_Current(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/weather", r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("appid"))

		if r.URL.Query().Get("q") == "Atlantis" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"name":"London","main":{"temp":15.2}}`))
	}))
	defer server.Close()

	p := NewProvider(upstream.New(time.Second), config.WeatherConfig{APIKey: "key", BaseURL: server.URL})

	resp, err := p.Current(context.Background(), " London ")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"name": "London",
		"main": map[string]interface{}{"temp": json.Number("15.2")},
	}, resp.Data())

	resp, err = p.Current(context.Background(), "Atlantis")
	var statusErr *upstream.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode())
	assert.Equal(t, "city not found", ErrorMessage(resp))
}

func TestProvider_Current_Errors(t *testing.T) {
	t.Parallel()

	called := false
	doer := doerFunc(func(context.Context, upstream.Request) (*upstream.Response, error) {
		called = true
		return nil, nil
	})

	_, err := NewProvider(doer, config.WeatherConfig{}).Current(context.Background(), "London")
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewProvider(doer, config.WeatherConfig{APIKey: "k"}).Current(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyCity)

	// A blank city is reported before a missing key.
	_, err = NewProvider(doer, config.WeatherConfig{}).Current(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyCity)

	assert.False(t, called)
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		resp *upstream.Response
		want string
	}{
		{name: "nil response", resp: nil, want: DefaultErrorMessage},
		{name: "message", resp: &upstream.Response{Body: []byte(`{"message":"Invalid API key"}`)}, want: "Invalid API key"},
		{name: "empty message", resp: &upstream.Response{Body: []byte(`{"message":""}`)}, want: DefaultErrorMessage},
		{name: "non-string message", resp: &upstream.Response{Body: []byte(`{"message":42}`)}, want: DefaultErrorMessage},
		{name: "not json", resp: &upstream.Response{Body: []byte(`Bad Gateway`)}, want: DefaultErrorMessage},
		{name: "array", resp: &upstream.Response{Body: []byte(`[]`)}, want: DefaultErrorMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ErrorMessage(tt.resp))
		})
	}
}

type doerFunc func(context.Context, upstream.Request) (*upstream.Response, error)

func (f doerFunc) Do(ctx context.Context, req upstream.Request) (*upstream.Response, error) {
	return f(ctx, req)
}
