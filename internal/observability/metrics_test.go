package observability

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"resumatch/internal/config"
	"resumatch/internal/embedding"
	"resumatch/internal/errors"
	"resumatch/internal/matching"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func allMetrics() config.CustomMetricsConfig {
	return config.CustomMetricsConfig{
		Matching:       config.MatchingMetricsConfig{Enabled: true, TrackDuration: true, TrackScores: true},
		Embedding:      config.EmbeddingMetricsConfig{Enabled: true, TrackDuration: true, TrackCache: true},
		Infrastructure: config.InfrastructureMetricsConfig{Enabled: true, TrackRateLimits: true},
	}
}

func newTestMetrics(t *testing.T, cfg config.CustomMetricsConfig) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"), cfg)
	require.NoError(t, err)
	return m, reader
}

// counterTotal sums every data point of the named int64 counter
func counterTotal(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestRecordMatch(t *testing.T) {
	m, reader := newTestMetrics(t, allMetrics())

	results := []matching.MatchResult{
		{Score: 40, Method: matching.MethodLexical},
		{Score: 90, Method: matching.MethodLexical},
	}
	m.RecordMatch(context.Background(), results, embedding.StateDisabled, 20*time.Millisecond)
	m.RecordMatch(context.Background(), results[:1], embedding.StateDisabled, 10*time.Millisecond)

	assert.Equal(t, int64(2), counterTotal(t, reader, "resumatch_match_runs_total"))
	assert.Equal(t, int64(3), counterTotal(t, reader, "resumatch_pairs_scored_total"))
}

func TestRecordMatchDisabled(t *testing.T) {
	cfg := allMetrics()
	cfg.Matching.Enabled = false
	m, reader := newTestMetrics(t, cfg)

	m.RecordMatch(context.Background(), []matching.MatchResult{{Score: 1}}, embedding.StateOK, time.Millisecond)
	assert.Equal(t, int64(0), counterTotal(t, reader, "resumatch_match_runs_total"))
}

func TestRecordEmbedding(t *testing.T) {
	m, reader := newTestMetrics(t, allMetrics())

	m.RecordEmbedding(context.Background(), "openai", 4, 1, time.Millisecond, nil)
	m.RecordEmbedding(context.Background(), "openai", 2, 0, time.Millisecond, stderrors.New("boom"))

	assert.Equal(t, int64(2), counterTotal(t, reader, "resumatch_embedding_requests_total"))
	assert.Equal(t, int64(1), counterTotal(t, reader, "resumatch_embedding_errors_total"))
	assert.Equal(t, int64(6), counterTotal(t, reader, "resumatch_embedding_texts_total"))
	assert.Equal(t, int64(1), counterTotal(t, reader, "resumatch_embedding_cache_hits_total"))
}

func TestRecordRateLimitHit(t *testing.T) {
	m, reader := newTestMetrics(t, allMetrics())
	m.RecordRateLimitHit(context.Background(), "ip")
	assert.Equal(t, int64(1), counterTotal(t, reader, "resumatch_rate_limit_hits_total"))

	cfg := allMetrics()
	cfg.Infrastructure.TrackRateLimits = false
	off, offReader := newTestMetrics(t, cfg)
	off.RecordRateLimitHit(context.Background(), "ip")
	assert.Equal(t, int64(0), counterTotal(t, offReader, "resumatch_rate_limit_hits_total"))
}

func TestZeroMetricsIsSafe(t *testing.T) {
	m := &Metrics{}
	assert.NotPanics(t, func() {
		m.RecordMatch(context.Background(), nil, embedding.StateOK, time.Second)
		m.RecordEmbedding(context.Background(), "x", 1, 0, time.Second, nil)
		m.RecordRateLimitHit(context.Background(), "ip")
	})
}

func TestDisabledManager(t *testing.T) {
	om, err := NewObservabilityManager(ObservabilityConfig{ServiceName: "resumatch"}, errors.NewNopLogger())
	require.NoError(t, err)

	assert.NotNil(t, om.GetMetrics())
	assert.NotNil(t, om.Tracer("x"))
	assert.NoError(t, om.Shutdown(context.Background()))
}

func TestGetObservabilityConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Observability.Enabled = true
	cfg.Observability.ServiceName = "resumatch"
	cfg.Observability.Tracing.SampleRate = 0.5
	cfg.Observability.Prometheus.Port = "9191"

	obs := GetObservabilityConfig(cfg, "1.2.3")
	assert.Equal(t, "1.2.3", obs.ServiceVersion)
	assert.InDelta(t, 0.5, obs.SampleRate, 1e-9)
	assert.Equal(t, "9191", obs.Prometheus.Port)

	assert.False(t, GetObservabilityConfig(nil, "dev").Enabled)
}
