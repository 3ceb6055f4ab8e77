package embedding

import (
	"context"
	"fmt"

	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/matching"
)

// Provider turns texts into vectors, one per input in input order
type Provider interface {
	Embed(ctx context.Context, texts []string) ([]matching.Vector, error)
	Name() string
	Model() string
}

// NewProvider builds the provider named by cfg.Provider
func NewProvider(ctx context.Context, cfg config.EmbeddingConfig, logger *errors.Logger) (Provider, error) {
	logger.Debug("Initializing embedding provider",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"base_url", cfg.BaseURL,
		"timeout", cfg.Timeout,
		"max_retries", cfg.MaxRetries)

	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(cfg), nil
	case "gemini":
		return NewGeminiProvider(ctx, cfg)
	case "ollama":
		return NewOllamaProvider(cfg)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported embedding provider: %s", cfg.Provider), nil)
	}
}

// checkCount guards against providers that drop or add vectors
func checkCount(provider string, got, want int) error {
	if got != want {
		return errors.NewEmbeddingError(errors.ErrCodeEmbeddingMismatch,
			fmt.Sprintf("%s returned %d vectors for %d inputs", provider, got, want), nil)
	}
	return nil
}
