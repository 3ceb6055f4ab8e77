package embedding

import (
	"context"

	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/matching"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider calls an OpenAI compatible /embeddings endpoint
type OpenAIProvider struct {
	client     *openai.Client
	model      string
	dimensions int
}

var _ Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates a provider for cfg.BaseURL. Any server speaking the
// OpenAI embeddings API works.
func NewOpenAIProvider(cfg config.EmbeddingConfig) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

func (p *OpenAIProvider) Name() string  { return "openai" }
func (p *OpenAIProvider) Model() string { return p.model }

// Embed sends all texts in one request
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([]matching.Vector, error) {
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(p.model),
	}
	if p.dimensions > 0 {
		req.Dimensions = p.dimensions
	}

	resp, err := p.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := checkCount(p.Name(), len(resp.Data), len(texts)); err != nil {
		return nil, err
	}

	// The API reports each vector's input position, which need not match response order
	vectors := make([]matching.Vector, len(texts))
	for i, d := range resp.Data {
		idx := d.Index
		if idx < 0 || idx >= len(texts) {
			idx = i
		}
		vectors[idx] = d.Embedding
	}
	for _, v := range vectors {
		if len(v) == 0 {
			return nil, errors.NewEmbeddingError(errors.ErrCodeEmbeddingMismatch,
				"openai response is missing a vector", nil)
		}
	}
	return vectors, nil
}
