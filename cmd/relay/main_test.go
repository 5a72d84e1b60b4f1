package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/apirelay/internal/config"
	"github.com/vyrodovalexey/apirelay/internal/observability"
)

func lookupFrom(vars map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestLoadAndValidateConfig_FlagsOverrideEnv(t *testing.T) {
	t.Parallel()

	cfg, err := loadAndValidateConfig(
		cli{Port: 7070, LogLevel: "debug", LogFormat: "console"},
		lookupFrom(map[string]string{"PORT": "9090", "RELAY_LOG_LEVEL": "warn"}),
	)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadAndValidateConfig_EnvWithoutFlags(t *testing.T) {
	t.Parallel()

	cfg, err := loadAndValidateConfig(cli{}, lookupFrom(map[string]string{"PORT": "9090"}))
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadAndValidateConfig_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		flags   cli
		env     map[string]string
		wantErr string
	}{
		{
			name:    "invalid log level flag",
			flags:   cli{LogLevel: "verbose"},
			wantErr: "logging.level",
		},
		{
			name:    "invalid port env",
			env:     map[string]string{"PORT": "x"},
			wantErr: "PORT",
		},
		{
			name:    "missing config file",
			flags:   cli{Config: "/nonexistent/relay.yaml"},
			wantErr: "failed to read config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := loadAndValidateConfig(tt.flags, lookupFrom(tt.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Address = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = config.Duration(2 * time.Second)
	return cfg
}

func TestInitApplication_ServesRoutes(t *testing.T) {
	t.Parallel()

	app, err := initApplication(context.Background(), testConfig(), observability.NopLogger())
	require.NoError(t, err)
	require.NotNil(t, app.metrics)

	engine := app.server.Engine()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "relay_build_info")

	// Without a key the weather endpoint reports a configuration error.
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/weather", strings.NewReader(`{"city":"London"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ConfigurationError", body["type"])
}

func TestInitApplication_MetricsDisabled(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Metrics.Enabled = false
	cfg.Weather.Breaker.Enabled = false

	app, err := initApplication(context.Background(), cfg, observability.NopLogger())
	require.NoError(t, err)
	assert.Nil(t, app.metrics)

	w := httptest.NewRecorder()
	app.server.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServe_StopsOnSignal(t *testing.T) {
	t.Parallel()

	app, err := initApplication(context.Background(), testConfig(), observability.NopLogger())
	require.NoError(t, err)

	sigCh := make(chan os.Signal, 1)
	done := make(chan error, 1)
	go func() {
		done <- serve(app, nil, sigCh)
	}()

	require.Eventually(t, app.server.IsRunning, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + app.server.Addr().String() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	sigCh <- syscall.SIGTERM

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after signal")
	}
	assert.False(t, app.server.IsRunning())
}

func TestApplyFlags_ZeroValuesKeepConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	applyFlags(cfg, cli{})

	assert.Equal(t, config.DefaultPort, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestApplyReload_SetsLevel(t *testing.T) {
	t.Parallel()

	logger, err := observability.NewLogger(observability.LogConfig{Level: "info", Format: "json", Output: "stderr"})
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Logging.Level = "debug"
	applyReload(logger, cfg)

	cfg.Logging.Level = "bogus"
	assert.NotPanics(t, func() { applyReload(logger, cfg) })
}
