package secrets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/apirelay/internal/config"
)

func newFakeVault(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/secret/data/apirelay", r.URL.Path)
		assert.Equal(t, "test-token", r.Header.Get("X-Vault-Token"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func vaultConfig(addr string) config.VaultConfig {
	cfg := config.Default().Vault
	cfg.Enabled = true
	cfg.Address = addr
	cfg.Token = "test-token"
	cfg.Timeout = config.Duration(2 * time.Second)
	return cfg
}

func TestNewVaultSource_Disabled(t *testing.T) {
	t.Parallel()

	_, err := NewVaultSource(config.VaultConfig{}, nil)
	assert.ErrorIs(t, err, ErrVaultDisabled)
}

func TestVaultSource_Lookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr error
	}{
		{
			name:   "kv v2",
			status: http.StatusOK,
			body:   `{"data":{"data":{"weather_api_key":"k"},"metadata":{"version":1}}}`,
			want:   "k",
		},
		{
			name:    "missing key",
			status:  http.StatusOK,
			body:    `{"data":{"data":{"other":"x"}}}`,
			wantErr: ErrKeyNotFound,
		},
		{
			name:    "soft deleted",
			status:  http.StatusOK,
			body:    `{"data":{"data":null,"metadata":{"deletion_time":"2024-01-01T00:00:00Z"}}}`,
			wantErr: ErrSecretNotFound,
		},
		{
			name:    "not found",
			status:  http.StatusNotFound,
			body:    `{"errors":[]}`,
			wantErr: ErrSecretNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := newFakeVault(t, tt.status, tt.body)
			src, err := NewVaultSource(vaultConfig(server.URL), nil)
			require.NoError(t, err)

			got, err := src.Lookup(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVaultSource_Lookup_ServerError(t *testing.T) {
	t.Parallel()

	server := newFakeVault(t, http.StatusInternalServerError, `{"errors":["boom"]}`)
	src, err := NewVaultSource(vaultConfig(server.URL), nil)
	require.NoError(t, err)

	_, err = src.Lookup(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read secret")
}

func TestResolveWeatherKey(t *testing.T) {
	t.Parallel()

	server := newFakeVault(t, http.StatusOK, `{"data":{"data":{"weather_api_key":"from-vault"}}}`)

	t.Run("fills empty key", func(t *testing.T) {
		t.Parallel()
		cfg := config.Default()
		cfg.Vault = vaultConfig(server.URL)

		require.NoError(t, ResolveWeatherKey(context.Background(), cfg, nil))
		assert.Equal(t, "from-vault", cfg.Weather.APIKey)
	})

	t.Run("keeps explicit key", func(t *testing.T) {
		t.Parallel()
		cfg := config.Default()
		cfg.Vault = vaultConfig(server.URL)
		cfg.Weather.APIKey = "from-env"

		require.NoError(t, ResolveWeatherKey(context.Background(), cfg, nil))
		assert.Equal(t, "from-env", cfg.Weather.APIKey)
	})

	t.Run("vault disabled", func(t *testing.T) {
		t.Parallel()
		cfg := config.Default()

		require.NoError(t, ResolveWeatherKey(context.Background(), cfg, nil))
		assert.Empty(t, cfg.Weather.APIKey)
	})
}
