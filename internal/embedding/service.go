package embedding

import (
	"context"
	"time"
	"unicode/utf8"

	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/matching"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// State says whether a match run used embeddings
type State string

const (
	StateDisabled      State = "disabled"
	StateNotConfigured State = "not_configured"
	StateOK            State = "ok"
	StateFailed        State = "failed"
)

// Status is reported with every match response
type Status struct {
	Enabled  bool    `json:"enabled" yaml:"enabled"`
	Status   State   `json:"status" yaml:"status"`
	Provider *string `json:"provider" yaml:"provider"`
	Model    *string `json:"model" yaml:"model"`
	Error    string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// ProviderName returns the provider, or "" when there is none
func (st Status) ProviderName() string { return deref(st.Provider) }

// ModelName returns the model, or "" when there is none
func (st Status) ModelName() string { return deref(st.Model) }

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Embeddings holds vectors aligned with the documents they were fetched for.
// Both slices are nil when embeddings were not used.
type Embeddings struct {
	JDs     []matching.Vector
	Resumes []matching.Vector
}

// Recorder receives one measurement per Embed call
type Recorder interface {
	RecordEmbedding(ctx context.Context, provider string, texts, cacheHits int, duration time.Duration, err error)
}

// Service fetches vectors through the cache, retry and circuit breaker
type Service struct {
	provider Provider
	breaker  *CircuitBreaker
	cache    Cache
	cfg      config.EmbeddingConfig
	enabled  bool
	logger   *errors.Logger
	recorder Recorder
}

// NewService builds the service described by cfg. A disabled or unconfigured
// service is still returned and reports its state through FetchBatch.
// A cache that cannot be reached is logged and skipped.
func NewService(ctx context.Context, cfg *config.Config, logger *errors.Logger) (*Service, error) {
	s := &Service{
		cfg:     cfg.Embedding,
		enabled: cfg.Matching.UseEmbeddings,
		logger:  logger,
	}
	if !s.enabled {
		logger.Info("Embeddings disabled, using lexical scoring only")
		return s, nil
	}
	if !cfg.EmbeddingsConfigured() {
		logger.Info("Embedding provider not configured, using lexical scoring only",
			"provider", cfg.Embedding.Provider)
		return s, nil
	}

	provider, err := NewProvider(ctx, cfg.Embedding, logger)
	if err != nil {
		return nil, err
	}

	cache, err := NewCache(ctx, cfg.Embedding.Cache, logger)
	if err != nil {
		logger.LogError(err, "Embedding cache unavailable, continuing without it",
			"backend", cfg.Embedding.Cache.Backend)
		cache = nil
	}

	return NewServiceWithProvider(provider, cache, cfg.Embedding, logger), nil
}

// NewServiceWithProvider wires an existing provider. cache may be nil.
func NewServiceWithProvider(provider Provider, cache Cache, cfg config.EmbeddingConfig, logger *errors.Logger) *Service {
	return &Service{
		provider: provider,
		breaker:  NewCircuitBreaker(provider.Name(), cfg.CircuitBreaker, logger),
		cache:    cache,
		cfg:      cfg,
		enabled:  true,
		logger:   logger,
	}
}

// SetRecorder attaches a metrics recorder
func (s *Service) SetRecorder(r Recorder) {
	s.recorder = r
}

// baseStatus fills everything except the outcome of a fetch
func (s *Service) baseStatus() Status {
	switch {
	case s == nil || !s.enabled:
		return Status{Status: StateDisabled}
	case s.provider == nil:
		return Status{Status: StateNotConfigured, Provider: optional(s.cfg.Provider)}
	default:
		return Status{Enabled: true, Provider: optional(s.provider.Name()), Model: optional(s.provider.Model())}
	}
}

// FetchBatch embeds JD and résumé texts concurrently. Any failure drops both
// sides so the match falls back to lexical scoring.
func (s *Service) FetchBatch(ctx context.Context, jdTexts, resumeTexts []string) (Embeddings, Status) {
	status := s.baseStatus()
	if !status.Enabled {
		return Embeddings{}, status
	}

	ctx, span := otel.Tracer("resumatch.embedding").Start(ctx, "embedding.fetch_batch")
	defer span.End()
	span.SetAttributes(
		attribute.String("embedding.provider", status.ProviderName()),
		attribute.String("embedding.model", status.ModelName()),
		attribute.Int("embedding.jd_count", len(jdTexts)),
		attribute.Int("embedding.resume_count", len(resumeTexts)),
	)

	// A failing side does not cancel the other: the breaker counts every
	// call it sees.
	var (
		out Embeddings
		g   errgroup.Group
	)
	g.Go(func() error {
		v, err := s.Embed(ctx, jdTexts)
		out.JDs = v
		return err
	})
	g.Go(func() error {
		v, err := s.Embed(ctx, resumeTexts)
		out.Resumes = v
		return err
	})

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding fetch failed")
		s.logger.Warn("Embedding fetch failed, falling back to lexical scoring",
			"provider", status.ProviderName(),
			"error", err.Error())
		status.Status = StateFailed
		status.Error = err.Error()
		return Embeddings{}, status
	}

	status.Status = StateOK
	return out, status
}

// Embed returns one vector per text, serving what it can from the cache
func (s *Service) Embed(ctx context.Context, texts []string) ([]matching.Vector, error) {
	if s == nil || s.provider == nil {
		return nil, errors.NewEmbeddingError(errors.ErrCodeEmbeddingNotConfig, "embedding provider not configured", nil)
	}
	if len(texts) == 0 {
		return []matching.Vector{}, nil
	}

	start := time.Now()
	name := s.provider.Name()
	vectors := make([]matching.Vector, len(texts))
	inputs := make([]string, len(texts))
	keys := make([]string, len(texts))
	var missing []int

	for i, text := range texts {
		inputs[i] = truncate(text, s.cfg.MaxInputChars)
		if s.cache != nil {
			keys[i] = cacheKey(s.cfg.Cache.KeyPrefix, name, s.provider.Model(), inputs[i])
			v, err := s.cache.Get(ctx, keys[i])
			if err != nil {
				s.logger.Warn("Embedding cache read failed", "backend", s.cache.Name(), "error", err.Error())
			} else if v != nil {
				vectors[i] = v
				continue
			}
		}
		missing = append(missing, i)
	}
	hits := len(texts) - len(missing)

	if len(missing) > 0 {
		batch := make([]string, len(missing))
		for j, i := range missing {
			batch[j] = inputs[i]
		}

		fetched, err := s.breaker.Execute(func() ([]matching.Vector, error) {
			return withRetry(ctx, s.logger, name, s.cfg.MaxRetries, func() ([]matching.Vector, error) {
				callCtx, cancel := s.withTimeout(ctx)
				defer cancel()
				return s.provider.Embed(callCtx, batch)
			})
		})
		if err == nil {
			err = checkCount(name, len(fetched), len(batch))
		}
		if err != nil {
			s.record(ctx, len(texts), hits, start, err)
			if _, ok := errors.AsAppError(err); ok {
				return nil, err
			}
			return nil, errors.NewEmbeddingError(errors.ErrCodeEmbeddingFailed, "embedding request failed", err).
				WithContext("provider", name)
		}

		for j, i := range missing {
			vectors[i] = fetched[j]
			if s.cache != nil {
				if err := s.cache.Set(ctx, keys[i], fetched[j]); err != nil {
					s.logger.Warn("Embedding cache write failed", "backend", s.cache.Name(), "error", err.Error())
				}
			}
		}
	}

	s.record(ctx, len(texts), hits, start, nil)
	return vectors, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Timeout)
}

func (s *Service) record(ctx context.Context, texts, hits int, start time.Time, err error) {
	if s.recorder != nil {
		s.recorder.RecordEmbedding(ctx, s.provider.Name(), texts, hits, time.Since(start), err)
	}
}

// truncate keeps at most limit runes. limit <= 0 disables truncation.
func truncate(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	n := 0
	for i := range text {
		if n == limit {
			return text[:i]
		}
		n++
	}
	return text
}

// IsHealthy reports whether provider calls are currently allowed
func (s *Service) IsHealthy() bool {
	return s == nil || s.breaker.IsHealthy()
}

// Stats describes the provider, breaker and cache
func (s *Service) Stats() map[string]any {
	status := s.baseStatus()
	stats := map[string]any{
		"status":   status.Status,
		"provider": status.ProviderName(),
		"model":    status.ModelName(),
		"cache":    "none",
	}
	if status.Enabled {
		stats["status"] = "configured"
		stats["circuit_breaker"] = s.breaker.Stats()
		if s.cache != nil {
			stats["cache"] = s.cache.Name()
		}
	}
	return stats
}

// Close releases the cache connection
func (s *Service) Close() error {
	if s == nil || s.cache == nil {
		return nil
	}
	return s.cache.Close()
}
