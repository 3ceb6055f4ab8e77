package embedding

import (
	"context"

	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/matching"

	"google.golang.org/genai"
)

// GeminiProvider embeds texts with the Gemini API
type GeminiProvider struct {
	client     *genai.Client
	model      string
	dimensions int
}

var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a Gemini embedding provider
func NewGeminiProvider(ctx context.Context, cfg config.EmbeddingConfig) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.NewEmbeddingError(errors.ErrCodeEmbeddingFailed,
			"Failed to create Gemini client", err)
	}
	return &GeminiProvider{client: client, model: cfg.Model, dimensions: cfg.Dimensions}, nil
}

func (g *GeminiProvider) Name() string  { return "gemini" }
func (g *GeminiProvider) Model() string { return g.model }

// Embed sends every text as its own content entry in a single batch call
func (g *GeminiProvider) Embed(ctx context.Context, texts []string) ([]matching.Vector, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	embedCfg := &genai.EmbedContentConfig{TaskType: "SEMANTIC_SIMILARITY"}
	if g.dimensions > 0 {
		dims := int32(g.dimensions)
		embedCfg.OutputDimensionality = &dims
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, embedCfg)
	if err != nil {
		return nil, err
	}
	if err := checkCount(g.Name(), len(resp.Embeddings), len(texts)); err != nil {
		return nil, err
	}

	vectors := make([]matching.Vector, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil {
			return nil, errors.NewEmbeddingError(errors.ErrCodeEmbeddingMismatch,
				"gemini response is missing a vector", nil)
		}
		vectors[i] = e.Values
	}
	return vectors, nil
}
