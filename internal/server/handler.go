package server

import (
	"net/http"

	"resumatch/internal/common"
	"resumatch/internal/embedding"
	"resumatch/internal/errors"
	"resumatch/internal/matching"
	"resumatch/internal/observability"
	"resumatch/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// matchFailedMessage is the only detail a client sees for an internal failure
const matchFailedMessage = "Unable to process match request."

// createMatchHandler scores every résumé in the body against every JD
func (s *Server) createMatchHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer("resumatch.api").Start(r.Context(), "api.match")
		defer span.End()

		requestID := RequestIDFrom(ctx)
		s.counters.matchRequests.Add(1)

		var req types.MatchRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			s.Logger.Debug("Rejected match request body",
				"request_id", requestID,
				"error", err.Error())
			if isBodyTooLarge(err) {
				writeErrorResponse(w, "Request body too large.", http.StatusRequestEntityTooLarge)
				return
			}
			writeErrorResponse(w, common.EmptyBatchMessage, http.StatusBadRequest)
			return
		}

		jds := common.NormalizeEntries(req.JDs, common.KindJD)
		resumes := common.NormalizeEntries(req.Resumes, common.KindResume)
		span.SetAttributes(
			attribute.Int("request.jd_count", len(jds)),
			attribute.Int("request.resume_count", len(resumes)),
		)

		if req.EmbeddingWeight != nil && !matching.ValidWeight(*req.EmbeddingWeight) {
			s.Logger.Debug("Ignoring out of range embedding weight",
				"request_id", requestID,
				"weight", *req.EmbeddingWeight)
		}

		resp, err := s.Runner.Run(ctx, jds, resumes, common.RunOptions{
			EmbeddingWeight: req.EmbeddingWeight,
			RequestID:       requestID,
		})
		if err != nil {
			span.RecordError(err)
			if errors.HasCode(err, errors.ErrCodeEmptyBatch) {
				span.SetAttributes(attribute.String("error.type", "validation"))
				writeErrorResponse(w, common.EmptyBatchMessage, http.StatusBadRequest)
				return
			}
			span.SetStatus(codes.Error, "match failed")
			s.counters.matchFailures.Add(1)
			s.Logger.LogError(err, "Match request failed", "request_id", requestID)
			writeErrorResponse(w, matchFailedMessage, http.StatusInternalServerError)
			return
		}

		if resp.Meta.Embedding.Status == embedding.StateFailed {
			s.Logger.Warn("Embeddings unavailable, scored lexically",
				"request_id", requestID,
				"provider", resp.Meta.Embedding.ProviderName(),
				"error", resp.Meta.Embedding.Error)
		}

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Int("response.result_count", len(resp.Results)),
			attribute.String("response.embedding_status", string(resp.Meta.Embedding.Status)),
		)

		writeJSON(w, http.StatusOK, resp)
	}
}

// createTokenizeHandler exposes the tokenizer for diagnostics
func (s *Server) createTokenizeHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := om.Tracer("resumatch.api").Start(r.Context(), "api.tokenize")
		defer span.End()

		s.counters.tokenizeRequests.Add(1)

		var req types.TokenizeRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			if isBodyTooLarge(err) {
				writeErrorResponse(w, "Request body too large.", http.StatusRequestEntityTooLarge)
				return
			}
			writeErrorResponse(w, "Invalid request body.", http.StatusBadRequest)
			return
		}

		tokens := matching.Tokenize(req.Text)
		span.SetAttributes(attribute.Int("response.token_count", len(tokens)))

		writeJSON(w, http.StatusOK, types.TokenizeResponse{Tokens: tokens, Count: len(tokens)})
	}
}

// createRateLimitMiddleware records a metric for every rejected request
func (s *Server) createRateLimitMiddleware(om *observability.ObservabilityManager) func(http.HandlerFunc) http.HandlerFunc {
	return s.rateLimitMiddleware(func(r *http.Request, limitType string) {
		s.counters.rejected.Add(1)
		om.GetMetrics().RecordRateLimitHit(r.Context(), limitType)
	})
}
