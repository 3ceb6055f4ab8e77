package embedding

import (
	"context"
	"testing"
	"time"

	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/matching"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	c := NewMemoryCache(time.Minute)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", matching.Vector{1, 2}))
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, matching.Vector{1, 2}, v)

	now = now.Add(2 * time.Minute)
	v, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Zero(t, c.Len())
}

func TestMemoryCacheCopiesVectors(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)

	in := matching.Vector{1, 2}
	require.NoError(t, c.Set(ctx, "k", in))
	in[0] = 9

	out, err := c.Get(ctx, "k")
	require.NoError(t, err)
	out[1] = 9

	again, _ := c.Get(ctx, "k")
	assert.Equal(t, matching.Vector{1, 2}, again)
}

func TestCacheKey(t *testing.T) {
	a := cacheKey("p:", "openai", "small", "hello")
	assert.Equal(t, a, cacheKey("p:", "openai", "small", "hello"))
	assert.NotEqual(t, a, cacheKey("p:", "openai", "large", "hello"))
	assert.NotEqual(t, a, cacheKey("p:", "gemini", "small", "hello"))
	assert.True(t, len(a) == len("p:")+64)
}

func TestNewCacheBackends(t *testing.T) {
	ctx := context.Background()
	logger := errors.NewNopLogger()

	c, err := NewCache(ctx, config.CacheConfig{Backend: "none"}, logger)
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = NewCache(ctx, config.CacheConfig{Backend: "memory", TTL: time.Hour}, logger)
	require.NoError(t, err)
	assert.Equal(t, "memory", c.Name())
}
