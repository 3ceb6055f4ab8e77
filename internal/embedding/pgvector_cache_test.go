package embedding

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"resumatch/internal/config"
	"resumatch/internal/matching"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPgvectorCacheSkipsWrongDimensions(t *testing.T) {
	// no pool: a vector of the wrong size never reaches the database
	c := &PgvectorCache{table: "embeddings", dims: 3}
	assert.NoError(t, c.Set(context.Background(), "k", matching.Vector{1, 2}))
}

func TestPgvectorCache(t *testing.T) {
	dsn := os.Getenv("RESUMATCH_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("RESUMATCH_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	table := fmt.Sprintf("resumatch_test_%d", time.Now().UnixNano())
	c, err := NewPgvectorCache(ctx, config.CacheConfig{
		TTL: time.Hour,
		Postgres: config.PostgresConfig{
			DSN:        dsn,
			Table:      table,
			Dimensions: 3,
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = c.pool.Exec(context.Background(), "DROP TABLE IF EXISTS "+table)
		_ = c.Close()
	})

	v, err := c.Get(ctx, "absent")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, c.Set(ctx, "k", matching.Vector{0.5, -1, 2}))
	v, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, matching.Vector{0.5, -1, 2}, v)

	require.NoError(t, c.Set(ctx, "k", matching.Vector{1, 1, 1}))
	v, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, matching.Vector{1, 1, 1}, v)

	require.NoError(t, c.Set(ctx, "short", matching.Vector{1}))
	v, err = c.Get(ctx, "short")
	require.NoError(t, err)
	assert.Nil(t, v)

	// entries older than the TTL read as misses
	_, err = c.pool.Exec(ctx, "UPDATE "+table+" SET created_at = now() - interval '2 hours' WHERE key = 'k'")
	require.NoError(t, err)
	v, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, v)
}
