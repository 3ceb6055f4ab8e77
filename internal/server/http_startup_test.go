package server

import (
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"resumatch/internal/config"
	"resumatch/internal/embedding"
	"resumatch/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closingCache struct {
	*embedding.MemoryCache
	closed atomic.Int32
}

func (c *closingCache) Close() error {
	c.closed.Add(1)
	return nil
}

func TestGracefulShutdownClosesEmbedder(t *testing.T) {
	tests := []struct {
		name  string
		stuck bool
	}{
		{name: "idle server"},
		{name: "shutdown times out", stuck: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := &closingCache{MemoryCache: embedding.NewMemoryCache(0)}
			svc := embedding.NewServiceWithProvider(failingProvider{}, cache,
				config.EmbeddingConfig{Provider: "stub"}, errors.NewNopLogger())
			s := newTestServer(t, testConfig(), svc)
			s.shutdownTimeout = 50 * time.Millisecond

			entered := make(chan struct{}, 1)
			release := make(chan struct{})
			t.Cleanup(func() { close(release) })

			srv := &http.Server{
				ReadHeaderTimeout: time.Second,
				Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					entered <- struct{}{}
					<-release
				}),
			}
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			require.NoError(t, err)
			go func() { _ = srv.Serve(ln) }()

			if tt.stuck {
				go func() {
					if resp, err := http.Get("http://" + ln.Addr().String()); err == nil {
						_ = resp.Body.Close()
					}
				}()
				<-entered
			}

			_ = s.performGracefulShutdown(srv)
			assert.Equal(t, int32(1), cache.closed.Load())
		})
	}
}
