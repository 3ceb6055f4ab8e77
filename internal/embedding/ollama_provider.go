package embedding

import (
	"context"

	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/matching"

	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaProvider embeds texts with a locally served Ollama model
type OllamaProvider struct {
	llm   *ollama.LLM
	model string
}

var _ Provider = (*OllamaProvider)(nil)

// NewOllamaProvider connects to the Ollama server at cfg.BaseURL
func NewOllamaProvider(cfg config.EmbeddingConfig) (*OllamaProvider, error) {
	llm, err := ollama.New(
		ollama.WithModel(cfg.Model),
		ollama.WithServerURL(cfg.BaseURL),
	)
	if err != nil {
		return nil, errors.NewEmbeddingError(errors.ErrCodeEmbeddingFailed,
			"Failed to create Ollama client", err).WithContext("base_url", cfg.BaseURL)
	}
	return &OllamaProvider{llm: llm, model: cfg.Model}, nil
}

func (o *OllamaProvider) Name() string  { return "ollama" }
func (o *OllamaProvider) Model() string { return o.model }

func (o *OllamaProvider) Embed(ctx context.Context, texts []string) ([]matching.Vector, error) {
	raw, err := o.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, err
	}
	if err := checkCount(o.Name(), len(raw), len(texts)); err != nil {
		return nil, err
	}

	vectors := make([]matching.Vector, len(raw))
	for i, v := range raw {
		vectors[i] = v
	}
	return vectors, nil
}
