package embedding

import (
	"context"
	stderrors "errors"
	"fmt"

	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/matching"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker stops calling a failing provider for a while.
// A nil *CircuitBreaker runs calls directly.
type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker[[]matching.Vector]
}

// NewCircuitBreaker returns nil when the breaker is disabled
func NewCircuitBreaker(provider string, cfg config.CircuitBreakerConfig, logger *errors.Logger) *CircuitBreaker {
	if !cfg.Enabled {
		return nil
	}

	settings := gobreaker.Settings{
		Name:        fmt.Sprintf("embedding-%s", provider),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests &&
				failureRatio >= cfg.FailureThreshold
		},
		// a caller giving up says nothing about the provider
		IsSuccessful: func(err error) bool {
			return err == nil || stderrors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
				"failure_threshold", cfg.FailureThreshold)
		},
	}

	return &CircuitBreaker{cb: gobreaker.NewCircuitBreaker[[]matching.Vector](settings)}
}

// Execute runs fn under the breaker. Rejections are reported as CIRCUIT_OPEN.
func (b *CircuitBreaker) Execute(fn func() ([]matching.Vector, error)) ([]matching.Vector, error) {
	if b == nil || b.cb == nil {
		return fn()
	}
	vectors, err := b.cb.Execute(fn)
	if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, errors.NewEmbeddingError(errors.ErrCodeCircuitOpen, "embedding provider circuit is open", err)
	}
	return vectors, err
}

// Stats describes the breaker for the stats endpoint
func (b *CircuitBreaker) Stats() map[string]any {
	if b == nil || b.cb == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"name":    b.cb.Name(),
		"state":   b.cb.State().String(),
		"counts":  b.cb.Counts(),
		"enabled": true,
	}
}

// IsHealthy reports whether the breaker is closed
func (b *CircuitBreaker) IsHealthy() bool {
	if b == nil || b.cb == nil {
		return true
	}
	return b.cb.State() == gobreaker.StateClosed
}
