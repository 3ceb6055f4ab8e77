package embedding

import (
	"context"
	"fmt"
	"testing"
	"time"

	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/matching"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func tripConfig() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		MinRequests:      2,
		FailureThreshold: 0.5,
	}
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker("test", tripConfig(), errors.NewNopLogger())
	require.NotNil(t, cb)

	calls := 0
	failing := func() ([]matching.Vector, error) {
		calls++
		return nil, fmt.Errorf("upstream down")
	}

	for range 2 {
		_, err := cb.Execute(failing)
		assert.ErrorContains(t, err, "upstream down")
	}
	assert.False(t, cb.IsHealthy())

	_, err := cb.Execute(failing)
	assert.True(t, errors.HasCode(err, errors.ErrCodeCircuitOpen))
	assert.Equal(t, 2, calls, "open breaker must not call through")
	assert.Equal(t, "open", cb.Stats()["state"])
}

func TestCircuitBreakerIgnoresCancellation(t *testing.T) {
	cb := NewCircuitBreaker("test", tripConfig(), errors.NewNopLogger())

	for range 3 {
		_, err := cb.Execute(func() ([]matching.Vector, error) {
			return nil, fmt.Errorf("embed: %w", context.Canceled)
		})
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.True(t, cb.IsHealthy())
	assert.Zero(t, cb.cb.Counts().TotalFailures)
}

func TestFetchBatchFailureLeavesOtherSideRunning(t *testing.T) {
	sideCtxErr := make(chan error, 1)
	p := &mockProvider{}
	p.On("Embed", mock.Anything, []string{"jd"}).Return(nil, fmt.Errorf("bad request")).Once()
	p.On("Embed", mock.Anything, []string{"resume"}).
		Run(func(args mock.Arguments) {
			time.Sleep(50 * time.Millisecond)
			sideCtxErr <- args.Get(0).(context.Context).Err()
		}).
		Return([]matching.Vector{{1}}, nil).Once()

	cfg := testEmbeddingConfig()
	cfg.CircuitBreaker = tripConfig()
	cfg.CircuitBreaker.MinRequests = 3
	svc := NewServiceWithProvider(p, nil, cfg, errors.NewNopLogger())

	emb, status := svc.FetchBatch(context.Background(), []string{"jd"}, []string{"resume"})
	assert.Equal(t, StateFailed, status.Status)
	assert.Empty(t, emb.JDs)
	assert.Empty(t, emb.Resumes)
	assert.NoError(t, <-sideCtxErr)

	counts := svc.breaker.cb.Counts()
	assert.Equal(t, uint32(2), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalFailures)
	assert.Equal(t, uint32(1), counts.TotalSuccesses)
	p.AssertExpectations(t)
}

func TestCircuitBreakerDisabled(t *testing.T) {
	cfg := tripConfig()
	cfg.Enabled = false

	cb := NewCircuitBreaker("test", cfg, errors.NewNopLogger())
	assert.Nil(t, cb)
	assert.True(t, cb.IsHealthy())
	assert.Equal(t, map[string]any{"enabled": false}, cb.Stats())

	got, err := cb.Execute(func() ([]matching.Vector, error) {
		return []matching.Vector{{1}}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []matching.Vector{{1}}, got)
}

func TestServiceStopsCallingProviderWhenOpen(t *testing.T) {
	p := &mockProvider{}
	p.On("Embed", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("bad request"))

	cfg := testEmbeddingConfig()
	cfg.CircuitBreaker = tripConfig()
	svc := NewServiceWithProvider(p, nil, cfg, errors.NewNopLogger())

	for range 2 {
		_, err := svc.Embed(context.Background(), []string{"x"})
		assert.True(t, errors.HasCode(err, errors.ErrCodeEmbeddingFailed))
	}

	_, status := svc.FetchBatch(context.Background(), []string{"x"}, []string{"y"})
	assert.Equal(t, StateFailed, status.Status)
	assert.Contains(t, status.Error, errors.ErrCodeCircuitOpen)
	p.AssertNumberOfCalls(t, "Embed", 2)
	assert.False(t, svc.IsHealthy())
}
