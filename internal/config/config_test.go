package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"resumatch/internal/matching"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEmbeddingEnv isolates tests from the developer's shell
func clearEmbeddingEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_EMBEDDING_MODEL",
		"GEMINI_API_KEY", "GOOGLE_API_KEY", "OLLAMA_HOST",
		"MATCH_USE_EMBEDDINGS", "RESUMATCH_MATCHING_USEEMBEDDINGS",
		"RESUMATCH_EMBEDDING_PROVIDER", "RESUMATCH_EMBEDDING_APIKEY",
		"RESUMATCH_SERVER_APIKEYS",
	} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigFileDefaults(t *testing.T) {
	clearEmbeddingEnv(t)
	cfg, err := LoadConfigFile(writeConfig(t, "app:\n  logLevel: warn\n"))
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.App.LogLevel)
	assert.InDelta(t, 0.7, cfg.Matching.EmbeddingWeight, 1e-9)
	assert.True(t, cfg.Matching.UseEmbeddings)
	assert.Equal(t, string(matching.TieBreakFirstSeen), cfg.Matching.TieBreak)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Embedding.BaseURL)
	assert.Equal(t, 8000, cfg.Embedding.MaxInputChars)
	assert.Equal(t, 30*time.Second, cfg.Embedding.Timeout)
	assert.Equal(t, "memory", cfg.Embedding.Cache.Backend)
	assert.Equal(t, "disabled", cfg.Server.TLS.Mode)
	assert.False(t, cfg.EmbeddingsConfigured())
}

func TestLoadConfigFileOpenAIEnvironment(t *testing.T) {
	clearEmbeddingEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_BASE_URL", "https://proxy.internal/v1/")
	t.Setenv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-large")
	t.Setenv("MATCH_USE_EMBEDDINGS", "false")

	cfg, err := LoadConfigFile(writeConfig(t, "matching:\n  embeddingWeight: 0.5\n"))
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, "https://proxy.internal/v1", cfg.Embedding.BaseURL)
	assert.Equal(t, "text-embedding-3-large", cfg.Embedding.Model)
	assert.False(t, cfg.Matching.UseEmbeddings)
	assert.InDelta(t, 0.5, cfg.Matching.EmbeddingWeight, 1e-9)
	assert.True(t, cfg.EmbeddingsConfigured())
}

func TestLoadConfigFileGeminiIgnoresOpenAIKey(t *testing.T) {
	clearEmbeddingEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("GOOGLE_API_KEY", "g-key")

	cfg, err := LoadConfigFile(writeConfig(t, "embedding:\n  provider: Gemini\n"))
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.Embedding.Provider)
	assert.Equal(t, "g-key", cfg.Embedding.APIKey)
	assert.Equal(t, "text-embedding-004", cfg.Embedding.Model)
}

func TestLoadConfigFileOllama(t *testing.T) {
	clearEmbeddingEnv(t)
	cfg, err := LoadConfigFile(writeConfig(t, "embedding:\n  provider: ollama\n"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434", cfg.Embedding.BaseURL)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.True(t, cfg.EmbeddingsConfigured())
}

func TestLoadConfigFileServerAPIKeys(t *testing.T) {
	clearEmbeddingEnv(t)
	t.Setenv("RESUMATCH_SERVER_APIKEYS", "one, two")

	cfg, err := LoadConfigFile(writeConfig(t, "server:\n  port: \"9000\"\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, cfg.Server.APIKeys)
	assert.Equal(t, "9000", cfg.Server.Port)
}

func TestLoadConfigFileTrimsListedAPIKeys(t *testing.T) {
	clearEmbeddingEnv(t)

	cfg, err := LoadConfigFile(writeConfig(t, "server:\n  apiKeys:\n    - \" alpha \"\n    - \"beta, gamma\"\n    - \" \"\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, cfg.Server.APIKeys)
}

func TestLoadConfigFileErrors(t *testing.T) {
	clearEmbeddingEnv(t)

	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = LoadConfigFile(writeConfig(t, "matching:\n  embeddingWeight: 1.5\n"))
	assert.ErrorContains(t, err, "embeddingWeight")

	_, err = LoadConfigFile(writeConfig(t, "embedding:\n  provider: cohere\n"))
	assert.ErrorContains(t, err, "unsupported embedding provider")
}

func validConfig() Config {
	return Config{
		Matching: MatchingConfig{EmbeddingWeight: 0.7, TieBreak: "first"},
		Embedding: EmbeddingConfig{
			Provider:       "openai",
			Timeout:        time.Second,
			MaxInputChars:  8000,
			CircuitBreaker: CircuitBreakerConfig{Enabled: true, FailureThreshold: 0.6},
			Cache:          CacheConfig{Backend: "memory"},
		},
		Server: ServerConfig{Port: "8080", TLS: TLSConfig{Mode: "disabled"}},
		App: AppConfig{
			DefaultFormat:    "json",
			SupportedFormats: []string{"json", "text"},
			MaxFileSize:      1,
			MaxRequestSize:   1,
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "weight zero is allowed", mutate: func(c *Config) { c.Matching.EmbeddingWeight = 0 }},
		{name: "negative weight", mutate: func(c *Config) { c.Matching.EmbeddingWeight = -0.1 }, errorMsg: "embeddingWeight"},
		{name: "negative workers", mutate: func(c *Config) { c.Matching.Workers = -1 }, errorMsg: "workers"},
		{name: "bad tie break", mutate: func(c *Config) { c.Matching.TieBreak = "random" }, errorMsg: "tieBreak"},
		{name: "zero timeout", mutate: func(c *Config) { c.Embedding.Timeout = 0 }, errorMsg: "timeout"},
		{name: "bad threshold", mutate: func(c *Config) { c.Embedding.CircuitBreaker.FailureThreshold = 2 }, errorMsg: "failureThreshold"},
		{name: "unknown cache", mutate: func(c *Config) { c.Embedding.Cache.Backend = "memcached" }, errorMsg: "unsupported cache backend"},
		{name: "redis without addr", mutate: func(c *Config) { c.Embedding.Cache.Backend = "redis" }, errorMsg: "redis.addr"},
		{
			name: "postgres bad table",
			mutate: func(c *Config) {
				c.Embedding.Cache = CacheConfig{Backend: "postgres", Postgres: PostgresConfig{
					DSN: "postgres://localhost/db", Table: "emb; drop table x", Dimensions: 3,
				}}
			},
			errorMsg: "invalid postgres cache table name",
		},
		{name: "missing port", mutate: func(c *Config) { c.Server.Port = "" }, errorMsg: "server port is required"},
		{name: "unsupported format", mutate: func(c *Config) { c.App.DefaultFormat = "xml" }, errorMsg: "invalid default format"},
		{name: "tls", mutate: func(c *Config) { c.Server.TLS.Mode = "server" }, errorMsg: "TLS configuration error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errorMsg)
		})
	}
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "sk-1****6789", MaskSecret("sk-123456789"))
	assert.Equal(t, "****", MaskSecret("short"))
	assert.Equal(t, "", MaskSecret(""))
}
