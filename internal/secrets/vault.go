// Package secrets resolves the weather API key from HashiCorp Vault.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/vyrodovalexey/apirelay/internal/config"
	"github.com/vyrodovalexey/apirelay/internal/observability"
)

// Sentinel errors for secret lookups.
var (
	ErrVaultDisabled  = errors.New("vault is disabled")
	ErrSecretNotFound = errors.New("secret not found")
	ErrKeyNotFound    = errors.New("key not found in secret")
)

// VaultSource reads a single string value from a KV v2 secret.
type VaultSource struct {
	api     *vaultapi.Client
	mount   string
	path    string
	key     string
	timeout time.Duration
	logger  observability.Logger
}

// NewVaultSource creates a source from the vault configuration.
func NewVaultSource(cfg config.VaultConfig, logger observability.Logger) (*VaultSource, error) {
	if !cfg.Enabled {
		return nil, ErrVaultDisabled
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	apiConfig := vaultapi.DefaultConfig()
	apiConfig.Address = cfg.Address
	apiConfig.MaxRetries = 0
	if cfg.Timeout > 0 {
		apiConfig.Timeout = cfg.Timeout.Duration()
	}

	api, err := vaultapi.NewClient(apiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Token != "" {
		api.SetToken(cfg.Token)
	}

	mount := strings.Trim(cfg.Mount, "/")
	if mount == "" {
		mount = config.DefaultVaultMount
	}
	key := cfg.Key
	if key == "" {
		key = config.DefaultVaultKey
	}

	return &VaultSource{
		api:     api,
		mount:   mount,
		path:    strings.Trim(cfg.Path, "/"),
		key:     key,
		timeout: cfg.Timeout.Duration(),
		logger:  logger.With(observability.String("component", "vault")),
	}, nil
}

// Lookup reads the configured key from the secret.
func (s *VaultSource) Lookup(ctx context.Context) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	fullPath := fmt.Sprintf("%s/data/%s", s.mount, s.path)

	secret, err := s.api.Logical().ReadWithContext(ctx, fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret %s: %w", fullPath, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, fullPath)
	}

	// KV v2 nests the payload under "data"; a soft-deleted secret has data: null.
	dataValue, hasData := secret.Data["data"]
	if hasData && dataValue == nil {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, fullPath)
	}
	data, ok := dataValue.(map[string]interface{})
	if !ok {
		data = secret.Data
	}

	value, ok := data[s.key].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("%w: %s in %s", ErrKeyNotFound, s.key, fullPath)
	}

	s.logger.Debug("secret read", observability.String("path", fullPath))
	return value, nil
}

// ResolveWeatherKey fills cfg.Weather.APIKey from Vault when vault is
// enabled and no key was set by file or environment.
func ResolveWeatherKey(ctx context.Context, cfg *config.Config, logger observability.Logger) error {
	if !cfg.Vault.Enabled || cfg.Weather.APIKey != "" {
		return nil
	}

	src, err := NewVaultSource(cfg.Vault, logger)
	if err != nil {
		return err
	}
	key, err := src.Lookup(ctx)
	if err != nil {
		return err
	}

	cfg.Weather.APIKey = key
	return nil
}
