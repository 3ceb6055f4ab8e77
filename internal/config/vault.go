package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"resumatch/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets names the KVv2 paths secrets are read from. Empty paths are skipped.
type VaultSecrets struct {
	APIKeys      string `mapstructure:"apiKeys"`      // key "keys", comma separated
	EmbeddingKey string `mapstructure:"embeddingKey"` // key "api_key"
	TLSCerts     string `mapstructure:"tlsCerts"`     // keys "cert", "key", "ca"
}

// kvReader is the subset of the Vault logical API used here
type kvReader interface {
	Read(path string) (*api.Secret, error)
}

// VaultClient reads KVv2 secrets
type VaultClient struct {
	kv     kvReader
	logger *errors.Logger
}

// NewVaultClient connects to Vault and checks its health. It returns nil when
// Vault is disabled.
func NewVaultClient(vc VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if !vc.Enabled {
		return nil, nil
	}

	apiCfg := api.DefaultConfig()
	if vc.Address != "" {
		apiCfg.Address = vc.Address
	}
	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to create vault client", err)
	}
	if vc.Namespace != "" {
		client.SetNamespace(vc.Namespace)
	}

	token, err := resolveVaultToken(vc)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeNetworkTimeout, "failed to connect to vault", err).
			WithContext("address", vc.Address)
	}
	logger.Info("Connected to Vault",
		"address", vc.Address,
		"version", health.Version,
		"sealed", health.Sealed)

	return &VaultClient{kv: client.Logical(), logger: logger}, nil
}

// resolveVaultToken prefers the inline token over the token file
func resolveVaultToken(vc VaultConfig) (string, error) {
	token := vc.Token
	if token == "" && vc.TokenFile != "" {
		raw, err := os.ReadFile(vc.TokenFile)
		if err != nil {
			return "", errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read vault token file", err).
				WithContext("file", vc.TokenFile)
		}
		token = strings.TrimSpace(string(raw))
	}
	if token == "" {
		return "", errors.NewConfigError(errors.ErrCodeMissingAPIKey, "vault token is required when vault is enabled", nil)
	}
	return token, nil
}

// VaultSecret is the payload and version of a KVv2 secret
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// GetSecretV2 reads a KVv2 secret
func (c *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	if c == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}

	raw, err := c.kv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if raw == nil || raw.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}
	return decodeKV2(raw, path)
}

func decodeKV2(raw *api.Secret, path string) (*VaultSecret, error) {
	data, ok := raw.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}
	metadata, ok := raw.Data["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}
	versionRaw, ok := metadata["version"]
	if !ok {
		return nil, fmt.Errorf("secret metadata at %s is missing 'version' field", path)
	}
	version, err := parseVersionValue(versionRaw)
	if err != nil {
		return nil, fmt.Errorf("secret at %s: %w", path, err)
	}
	return &VaultSecret{Data: data, Version: version}, nil
}

// parseVersionValue accepts the numeric forms the JSON decoder and Vault produce
func parseVersionValue(v any) (int64, error) {
	switch v := v.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version: %w", err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unexpected type for version: %T", v)
	}
}

// GetStringSecret returns one string value of a secret
func (c *VaultClient) GetStringSecret(path, key string) (string, error) {
	secret, err := c.GetSecretV2(path)
	if err != nil {
		return "", err
	}
	value, ok := secret.Data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string in secret %s", key, path)
	}
	c.logger.Debug("String secret retrieved from Vault", "path", path, "key", key, "masked_value", MaskSecret(s))
	return s, nil
}

// ApplyVaultSecrets loads secrets from Vault over the configured values
func ApplyVaultSecrets(cfg *Config, logger *errors.Logger) error {
	if !cfg.Vault.Enabled {
		logger.Debug("Vault integration disabled, skipping secret loading")
		return nil
	}

	client, err := NewVaultClient(cfg.Vault, logger)
	if err != nil {
		logger.LogError(err, "Failed to initialize Vault client")
		return err
	}
	return client.applySecrets(cfg)
}

func (c *VaultClient) applySecrets(cfg *Config) error {
	paths := cfg.Vault.Secrets

	if paths.APIKeys != "" {
		raw, err := c.GetStringSecret(paths.APIKeys, "keys")
		if err != nil {
			return fmt.Errorf("failed to load API keys from vault: %w", err)
		}
		if keys := splitAndTrim(raw); len(keys) > 0 {
			cfg.Server.APIKeys = keys
			c.logger.Info("API keys loaded from Vault", "count", len(keys))
		} else {
			c.logger.Warn("No API keys found in Vault", "path", paths.APIKeys)
		}
	}

	if paths.EmbeddingKey != "" {
		key, err := c.GetStringSecret(paths.EmbeddingKey, "api_key")
		if err != nil {
			return fmt.Errorf("failed to load embedding API key from vault: %w", err)
		}
		if key != "" {
			cfg.Embedding.APIKey = key
			c.logger.Info("Embedding API key loaded from Vault", "provider", cfg.Embedding.Provider)
		}
	}

	if paths.TLSCerts != "" {
		secret, err := c.GetSecretV2(paths.TLSCerts)
		if err != nil {
			return fmt.Errorf("failed to load TLS certificates from vault: %w", err)
		}
		n := applyTLSContent(&cfg.Server.TLS, secret)
		c.logger.Info("TLS certificates loaded from Vault", "certificates_loaded", n)
	}

	return nil
}

// applyTLSContent copies PEM content from a secret, replacing any file paths
// so the two sources never conflict. It returns how many fields were set.
func applyTLSContent(t *TLSConfig, secret *VaultSecret) int {
	targets := []struct {
		key     string
		content *string
		file    *string
	}{
		{"cert", &t.CertContent, &t.CertFile},
		{"key", &t.KeyContent, &t.KeyFile},
		{"ca", &t.CAContent, &t.CAFile},
	}

	n := 0
	for _, tgt := range targets {
		if pem, ok := secret.Data[tgt.key].(string); ok && pem != "" {
			*tgt.content = pem
			*tgt.file = ""
			n++
		}
	}
	return n
}
