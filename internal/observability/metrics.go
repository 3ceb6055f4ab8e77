package observability

import (
	"context"
	"fmt"
	"time"

	"resumatch/internal/config"
	"resumatch/internal/embedding"
	"resumatch/internal/matching"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all custom metrics. A zero Metrics records nothing.
type Metrics struct {
	cfg config.CustomMetricsConfig

	// Match batch metrics
	MatchRuns     metric.Int64Counter
	MatchDuration metric.Float64Histogram
	PairsScored   metric.Int64Counter
	MatchScores   metric.Int64Histogram

	// Embedding provider metrics
	EmbeddingRequests  metric.Int64Counter
	EmbeddingErrors    metric.Int64Counter
	EmbeddingDuration  metric.Float64Histogram
	EmbeddingTexts     metric.Int64Counter
	EmbeddingCacheHits metric.Int64Counter

	// Rate limiting metrics
	RateLimitHits metric.Int64Counter
}

// NewMetrics creates every instrument on meter
func NewMetrics(meter metric.Meter, cfg config.CustomMetricsConfig) (*Metrics, error) {
	m := &Metrics{cfg: cfg}

	if err := m.createMatchMetrics(meter); err != nil {
		return nil, err
	}
	if err := m.createEmbeddingMetrics(meter); err != nil {
		return nil, err
	}
	if err := m.createRateLimitMetrics(meter); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) createMatchMetrics(meter metric.Meter) error {
	var err error

	m.MatchRuns, err = meter.Int64Counter(
		"resumatch_match_runs_total",
		metric.WithDescription("Total number of match batches scored"),
	)
	if err != nil {
		return fmt.Errorf("failed to create match runs metric: %w", err)
	}

	m.MatchDuration, err = meter.Float64Histogram(
		"resumatch_match_duration_seconds",
		metric.WithDescription("Time spent scoring a match batch, embeddings included"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create match duration metric: %w", err)
	}

	m.PairsScored, err = meter.Int64Counter(
		"resumatch_pairs_scored_total",
		metric.WithDescription("Total number of résumé and JD pairs scored"),
	)
	if err != nil {
		return fmt.Errorf("failed to create pairs scored metric: %w", err)
	}

	m.MatchScores, err = meter.Int64Histogram(
		"resumatch_match_score",
		metric.WithDescription("Distribution of final pair scores"),
		metric.WithExplicitBucketBoundaries(10, 20, 30, 40, 50, 60, 70, 80, 90, 100),
	)
	if err != nil {
		return fmt.Errorf("failed to create match score metric: %w", err)
	}

	return nil
}

func (m *Metrics) createEmbeddingMetrics(meter metric.Meter) error {
	var err error

	m.EmbeddingRequests, err = meter.Int64Counter(
		"resumatch_embedding_requests_total",
		metric.WithDescription("Total number of embedding batches requested"),
	)
	if err != nil {
		return fmt.Errorf("failed to create embedding request count metric: %w", err)
	}

	m.EmbeddingErrors, err = meter.Int64Counter(
		"resumatch_embedding_errors_total",
		metric.WithDescription("Total number of failed embedding batches"),
	)
	if err != nil {
		return fmt.Errorf("failed to create embedding error count metric: %w", err)
	}

	m.EmbeddingDuration, err = meter.Float64Histogram(
		"resumatch_embedding_duration_seconds",
		metric.WithDescription("Time spent fetching embeddings"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create embedding duration metric: %w", err)
	}

	m.EmbeddingTexts, err = meter.Int64Counter(
		"resumatch_embedding_texts_total",
		metric.WithDescription("Total number of texts submitted for embedding"),
	)
	if err != nil {
		return fmt.Errorf("failed to create embedding texts metric: %w", err)
	}

	m.EmbeddingCacheHits, err = meter.Int64Counter(
		"resumatch_embedding_cache_hits_total",
		metric.WithDescription("Texts served from the embedding cache"),
	)
	if err != nil {
		return fmt.Errorf("failed to create embedding cache hits metric: %w", err)
	}

	return nil
}

func (m *Metrics) createRateLimitMetrics(meter metric.Meter) error {
	var err error

	m.RateLimitHits, err = meter.Int64Counter(
		"resumatch_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	return nil
}

// RecordMatch records one scored batch
func (m *Metrics) RecordMatch(ctx context.Context, results []matching.MatchResult, state embedding.State, duration time.Duration) {
	if m.MatchRuns == nil || !m.cfg.Matching.Enabled {
		return
	}

	attrs := metric.WithAttributes(attribute.String("embedding_status", string(state)))
	m.MatchRuns.Add(ctx, 1, attrs)
	m.PairsScored.Add(ctx, int64(len(results)), attrs)

	if m.cfg.Matching.TrackDuration {
		m.MatchDuration.Record(ctx, duration.Seconds(), attrs)
	}

	if m.cfg.Matching.TrackScores {
		for _, r := range results {
			m.MatchScores.Record(ctx, int64(r.Score),
				metric.WithAttributes(attribute.String("method", string(r.Method))))
		}
	}
}

// RecordEmbedding records one provider batch
func (m *Metrics) RecordEmbedding(ctx context.Context, provider string, texts, cacheHits int, duration time.Duration, err error) {
	if m.EmbeddingRequests == nil || !m.cfg.Embedding.Enabled {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.Bool("success", err == nil),
	)
	m.EmbeddingRequests.Add(ctx, 1, attrs)
	m.EmbeddingTexts.Add(ctx, int64(texts), attrs)

	if err != nil {
		m.EmbeddingErrors.Add(ctx, 1, attrs)
	}
	if m.cfg.Embedding.TrackDuration {
		m.EmbeddingDuration.Record(ctx, duration.Seconds(), attrs)
	}
	if m.cfg.Embedding.TrackCache && cacheHits > 0 {
		m.EmbeddingCacheHits.Add(ctx, int64(cacheHits),
			metric.WithAttributes(attribute.String("provider", provider)))
	}
}

// RecordRateLimitHit records a rejected request
func (m *Metrics) RecordRateLimitHit(ctx context.Context, limitType string) {
	if m.RateLimitHits == nil {
		return
	}
	if !m.cfg.Infrastructure.Enabled || !m.cfg.Infrastructure.TrackRateLimits {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("limit_type", limitType)))
}
