package common

import (
	"context"
	"time"

	"resumatch/internal/config"
	"resumatch/internal/embedding"
	"resumatch/internal/errors"
	"resumatch/internal/matching"
	"resumatch/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// EmptyBatchMessage is the client facing message for a request without JDs or résumés
const EmptyBatchMessage = "Please provide at least one JD and one resume."

// MatchRecorder receives one measurement per completed match run
type MatchRecorder interface {
	RecordMatch(ctx context.Context, results []matching.MatchResult, state embedding.State, duration time.Duration)
}

// RunOptions are per-run overrides
type RunOptions struct {
	EmbeddingWeight *float64
	RequestID       string
}

// MatchRunner fetches embeddings and scores a batch. The CLI and the HTTP
// server share it.
type MatchRunner struct {
	embedder *embedding.Service
	cfg      config.MatchingConfig
	logger   *errors.Logger
	recorder MatchRecorder
}

// NewMatchRunner creates a runner. embedder may be nil for lexical-only scoring.
func NewMatchRunner(embedder *embedding.Service, cfg config.MatchingConfig, logger *errors.Logger) *MatchRunner {
	return &MatchRunner{embedder: embedder, cfg: cfg, logger: logger}
}

// SetRecorder attaches a metrics recorder
func (r *MatchRunner) SetRecorder(rec MatchRecorder) {
	r.recorder = rec
}

// Run scores every résumé against every JD. Embedding problems never fail the
// run; they are reported in the response meta instead.
func (r *MatchRunner) Run(ctx context.Context, jds, resumes []matching.Document, opts RunOptions) (types.MatchResponse, error) {
	if len(jds) == 0 || len(resumes) == 0 {
		return types.MatchResponse{}, errors.NewValidationError(errors.ErrCodeEmptyBatch, EmptyBatchMessage, nil).
			WithContext("jd_count", len(jds)).
			WithContext("resume_count", len(resumes))
	}

	start := time.Now()
	ctx, span := otel.Tracer("resumatch.matching").Start(ctx, "match.run")
	defer span.End()

	weight := matching.WeightOrDefault(opts.EmbeddingWeight, matching.NormalizeWeight(&r.cfg.EmbeddingWeight))
	tieBreak, err := matching.ParseTieBreak(r.cfg.TieBreak)
	if err != nil {
		return types.MatchResponse{}, errors.NewConfigError(errors.ErrCodeInvalidConfig, "invalid tie-break", err)
	}

	vectors, status := r.embedder.FetchBatch(ctx, documentTexts(jds), documentTexts(resumes))

	batch := matching.ComputeMatches(jds, resumes, matching.Options{
		JDEmbeddings:     vectors.JDs,
		ResumeEmbeddings: vectors.Resumes,
		EmbeddingWeight:  &weight,
		Workers:          r.cfg.Workers,
		TieBreak:         tieBreak,
	})

	duration := time.Since(start)
	span.SetAttributes(
		attribute.Int("match.jd_count", len(jds)),
		attribute.Int("match.resume_count", len(resumes)),
		attribute.Float64("match.embedding_weight", weight),
		attribute.String("match.embedding_status", string(status.Status)),
	)
	r.logger.Debug("Match batch scored",
		"request_id", opts.RequestID,
		"jd_count", len(jds),
		"resume_count", len(resumes),
		"embedding_status", status.Status,
		"duration_ms", duration.Milliseconds())
	if r.recorder != nil {
		r.recorder.RecordMatch(ctx, batch.Results, status.Status, duration)
	}

	return types.MatchResponse{
		Results:      batch.Results,
		BestByResume: batch.BestByResume,
		Meta: types.MatchMeta{
			JDCount:         len(jds),
			ResumeCount:     len(resumes),
			EmbeddingWeight: weight,
			Embedding:       status,
			RequestID:       opts.RequestID,
			DurationMs:      duration.Milliseconds(),
		},
	}, nil
}

func documentTexts(docs []matching.Document) []string {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	return texts
}
