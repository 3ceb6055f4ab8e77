package embedding

import (
	"context"
	"testing"
	"time"

	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/matching"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(), config.CacheConfig{
		TTL:   ttl,
		Redis: config.RedisConfig{Addr: mr.Addr()},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCacheMiss(t *testing.T) {
	c, _ := newRedisCache(t, time.Minute)

	v, err := c.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestRedisCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t, time.Minute)

	require.NoError(t, c.Set(ctx, "k", matching.Vector{0.5, -1, 2}))
	assert.Equal(t, time.Minute, mr.TTL("k"))

	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, matching.Vector{0.5, -1, 2}, v)

	mr.FastForward(2 * time.Minute)
	v, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestRedisCacheWithoutTTL(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t, 0)

	require.NoError(t, c.Set(ctx, "k", matching.Vector{1}))
	assert.Zero(t, mr.TTL("k"))

	mr.FastForward(24 * time.Hour)
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, matching.Vector{1}, v)
}

func TestRedisCacheCorruptEntry(t *testing.T) {
	c, mr := newRedisCache(t, time.Minute)
	require.NoError(t, mr.Set("k", "not a vector"))

	_, err := c.Get(context.Background(), "k")
	assert.Error(t, err)
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewCache(context.Background(), config.CacheConfig{
		Backend: "redis",
		Redis:   config.RedisConfig{Addr: addr},
	}, errors.NewNopLogger())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeCacheFailed), "unexpected error: %v", err)
}
