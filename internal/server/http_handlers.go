package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"resumatch/internal/types"
)

// healthHandler reports liveness plus the state of the embedding provider.
// An open circuit breaker degrades the service without failing it: matching
// keeps working lexically.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	embeddingStats := s.Embedder.Stats()

	status := "healthy"
	if !s.Embedder.IsHealthy() {
		status = "degraded"
	}

	response := map[string]any{
		"status":    status,
		"service":   "resumatch",
		"version":   s.Version,
		"embedding": embeddingStats,
	}

	writeJSON(w, http.StatusOK, response)
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service":        "resumatch",
		"version":        s.Version,
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
		"requests": map[string]any{
			"match":          s.counters.matchRequests.Load(),
			"match_failures": s.counters.matchFailures.Load(),
			"tokenize":       s.counters.tokenizeRequests.Load(),
			"rate_limited":   s.counters.rejected.Load(),
		},
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"auth_enabled":           len(s.APIKeys) > 0,
		},
		"embedding": s.Embedder.Stats(),
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	if s.certManager != nil {
		response["tls"] = s.certManager.Stats()
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// errBodyTooLarge marks a body cut off by http.MaxBytesReader
var errBodyTooLarge = errors.New("request body too large")

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			return fmt.Errorf("content-type must be application/json")
		}
	}

	defer func() { _ = r.Body.Close() }()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("%w (limit is %d bytes)", errBodyTooLarge, maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nil
}

func isBodyTooLarge(err error) bool {
	return errors.Is(err, errBodyTooLarge)
}

// writeJSON encodes v with the given status
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	// The status line is already written, so an encode failure can only be dropped
	_ = json.NewEncoder(w).Encode(v)
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, types.ErrorResponse{Error: message})
}
