package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/matching"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Embed(ctx context.Context, texts []string) ([]matching.Vector, error) {
	args := m.Called(ctx, texts)
	vectors, _ := args.Get(0).([]matching.Vector)
	return vectors, args.Error(1)
}

func (m *mockProvider) Name() string  { return "mock" }
func (m *mockProvider) Model() string { return "mock-embed" }

func init() {
	backoff = func(int) time.Duration { return time.Millisecond }
}

func testEmbeddingConfig() config.EmbeddingConfig {
	return config.EmbeddingConfig{
		Provider:      "mock",
		Timeout:       time.Second,
		MaxRetries:    2,
		MaxInputChars: 8000,
		Cache:         config.CacheConfig{KeyPrefix: "test:"},
	}
}

func TestEmbedUsesCache(t *testing.T) {
	p := &mockProvider{}
	p.On("Embed", mock.Anything, []string{"alpha", "beta"}).
		Return([]matching.Vector{{1, 0}, {0, 1}}, nil).Once()
	p.On("Embed", mock.Anything, []string{"gamma"}).
		Return([]matching.Vector{{1, 1}}, nil).Once()

	cache := NewMemoryCache(time.Hour)
	svc := NewServiceWithProvider(p, cache, testEmbeddingConfig(), errors.NewNopLogger())

	first, err := svc.Embed(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	assert.Equal(t, []matching.Vector{{1, 0}, {0, 1}}, first)
	assert.Equal(t, 2, cache.Len())

	// alpha and beta are served from the cache; only gamma reaches the provider
	second, err := svc.Embed(context.Background(), []string{"beta", "gamma", "alpha"})
	require.NoError(t, err)
	assert.Equal(t, []matching.Vector{{0, 1}, {1, 1}, {1, 0}}, second)

	p.AssertExpectations(t)
}

func TestEmbedRetriesTransientErrors(t *testing.T) {
	p := &mockProvider{}
	p.On("Embed", mock.Anything, []string{"text"}).
		Return(nil, &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"}).Twice()
	p.On("Embed", mock.Anything, []string{"text"}).
		Return([]matching.Vector{{0.5}}, nil).Once()

	svc := NewServiceWithProvider(p, nil, testEmbeddingConfig(), errors.NewNopLogger())
	got, err := svc.Embed(context.Background(), []string{"text"})

	require.NoError(t, err)
	assert.Equal(t, []matching.Vector{{0.5}}, got)
	p.AssertNumberOfCalls(t, "Embed", 3)
}

func TestEmbedDoesNotRetryClientErrors(t *testing.T) {
	p := &mockProvider{}
	p.On("Embed", mock.Anything, mock.Anything).
		Return(nil, &openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "bad key"})

	svc := NewServiceWithProvider(p, nil, testEmbeddingConfig(), errors.NewNopLogger())
	_, err := svc.Embed(context.Background(), []string{"text"})

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeEmbeddingFailed))
	p.AssertNumberOfCalls(t, "Embed", 1)
}

func TestEmbedRejectsShortBatch(t *testing.T) {
	p := &mockProvider{}
	p.On("Embed", mock.Anything, mock.Anything).Return([]matching.Vector{{1}}, nil)

	svc := NewServiceWithProvider(p, nil, testEmbeddingConfig(), errors.NewNopLogger())
	_, err := svc.Embed(context.Background(), []string{"a", "b"})

	assert.True(t, errors.HasCode(err, errors.ErrCodeEmbeddingMismatch))
}

func TestEmbedTruncatesInput(t *testing.T) {
	cfg := testEmbeddingConfig()
	cfg.MaxInputChars = 4

	p := &mockProvider{}
	p.On("Embed", mock.Anything, []string{"héll"}).Return([]matching.Vector{{1}}, nil).Once()

	svc := NewServiceWithProvider(p, nil, cfg, errors.NewNopLogger())
	input := []string{"héllo world"}
	_, err := svc.Embed(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, "héllo world", input[0])
	p.AssertExpectations(t)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "abc", truncate("abc", 0))
	assert.Equal(t, "日本", truncate("日本語", 2))
}

func TestFetchBatchStates(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled", func(t *testing.T) {
		cfg := &config.Config{Matching: config.MatchingConfig{UseEmbeddings: false}}
		svc, err := NewService(ctx, cfg, errors.NewNopLogger())
		require.NoError(t, err)

		emb, status := svc.FetchBatch(ctx, []string{"a"}, []string{"b"})
		assert.Equal(t, StateDisabled, status.Status)
		assert.False(t, status.Enabled)
		assert.Nil(t, emb.JDs)
	})

	t.Run("not configured", func(t *testing.T) {
		cfg := &config.Config{
			Matching:  config.MatchingConfig{UseEmbeddings: true},
			Embedding: config.EmbeddingConfig{Provider: "openai"},
		}
		svc, err := NewService(ctx, cfg, errors.NewNopLogger())
		require.NoError(t, err)

		_, status := svc.FetchBatch(ctx, []string{"a"}, []string{"b"})
		assert.Equal(t, StateNotConfigured, status.Status)
		assert.Equal(t, "openai", status.ProviderName())
		assert.Nil(t, status.Model)
	})

	t.Run("ok", func(t *testing.T) {
		p := &mockProvider{}
		p.On("Embed", mock.Anything, []string{"jd"}).Return([]matching.Vector{{1, 0}}, nil)
		p.On("Embed", mock.Anything, []string{"r1", "r2"}).Return([]matching.Vector{{0, 1}, {1, 1}}, nil)

		svc := NewServiceWithProvider(p, nil, testEmbeddingConfig(), errors.NewNopLogger())
		emb, status := svc.FetchBatch(ctx, []string{"jd"}, []string{"r1", "r2"})

		assert.Equal(t, StateOK, status.Status)
		assert.True(t, status.Enabled)
		assert.Equal(t, "mock-embed", status.ModelName())
		assert.Len(t, emb.JDs, 1)
		assert.Len(t, emb.Resumes, 2)
	})

	t.Run("failed drops both sides", func(t *testing.T) {
		p := &mockProvider{}
		p.On("Embed", mock.Anything, []string{"jd"}).Return([]matching.Vector{{1, 0}}, nil)
		p.On("Embed", mock.Anything, []string{"r1"}).Return(nil, fmt.Errorf("invalid input"))

		svc := NewServiceWithProvider(p, nil, testEmbeddingConfig(), errors.NewNopLogger())
		emb, status := svc.FetchBatch(ctx, []string{"jd"}, []string{"r1"})

		assert.Equal(t, StateFailed, status.Status)
		assert.Contains(t, status.Error, "invalid input")
		assert.Nil(t, emb.JDs)
		assert.Nil(t, emb.Resumes)
	})
}

type countingRecorder struct {
	calls, hits int
	failed      int
}

func (r *countingRecorder) RecordEmbedding(_ context.Context, _ string, _ int, cacheHits int, _ time.Duration, err error) {
	r.calls++
	r.hits += cacheHits
	if err != nil {
		r.failed++
	}
}

func TestEmbedRecordsMetrics(t *testing.T) {
	p := &mockProvider{}
	p.On("Embed", mock.Anything, []string{"a"}).Return([]matching.Vector{{1}}, nil).Once()

	rec := &countingRecorder{}
	svc := NewServiceWithProvider(p, NewMemoryCache(0), testEmbeddingConfig(), errors.NewNopLogger())
	svc.SetRecorder(rec)

	_, err := svc.Embed(context.Background(), []string{"a"})
	require.NoError(t, err)
	_, err = svc.Embed(context.Background(), []string{"a"})
	require.NoError(t, err)

	assert.Equal(t, 2, rec.calls)
	assert.Equal(t, 1, rec.hits)
	assert.Zero(t, rec.failed)
}

func TestServiceStats(t *testing.T) {
	p := &mockProvider{}
	cfg := testEmbeddingConfig()
	cfg.CircuitBreaker = config.CircuitBreakerConfig{Enabled: true, MaxRequests: 1, FailureThreshold: 0.5, MinRequests: 1}

	svc := NewServiceWithProvider(p, NewMemoryCache(0), cfg, errors.NewNopLogger())
	stats := svc.Stats()

	assert.Equal(t, "configured", stats["status"])
	assert.Equal(t, "memory", stats["cache"])
	assert.True(t, svc.IsHealthy())
	assert.True(t, strings.HasPrefix(stats["circuit_breaker"].(map[string]any)["name"].(string), "embedding-"))

	var nilSvc *Service
	assert.True(t, nilSvc.IsHealthy())
	assert.NoError(t, nilSvc.Close())
}
