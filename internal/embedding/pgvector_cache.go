package embedding

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/matching"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PgvectorCache keeps vectors in a Postgres table with a pgvector column
type PgvectorCache struct {
	pool  *pgxpool.Pool
	table string
	dims  int
	ttl   time.Duration
}

// NewPgvectorCache connects and creates the extension and table when missing.
// The table name was validated by config.
func NewPgvectorCache(ctx context.Context, cfg config.CacheConfig) (*PgvectorCache, error) {
	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, errors.NewCacheError(errors.ErrCodeCacheFailed, "failed to connect to postgres", err)
	}

	c := &PgvectorCache{
		pool:  pool,
		table: cfg.Postgres.Table,
		dims:  cfg.Postgres.Dimensions,
		ttl:   cfg.TTL,
	}
	if err := c.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return c, nil
}

func (c *PgvectorCache) initialize(ctx context.Context) error {
	if _, err := c.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return errors.NewCacheError(errors.ErrCodeCacheFailed, "failed to create vector extension", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, c.table, c.dims)
	if _, err := c.pool.Exec(ctx, createTable); err != nil {
		return errors.NewCacheError(errors.ErrCodeCacheFailed, "failed to create embedding table", err).
			WithContext("table", c.table)
	}
	return nil
}

func (c *PgvectorCache) Name() string { return "postgres" }

func (c *PgvectorCache) Get(ctx context.Context, key string) (matching.Vector, error) {
	query := fmt.Sprintf(`SELECT embedding::text FROM %s WHERE key = $1 AND ($2::timestamptz IS NULL OR created_at > $2)`, c.table)

	var cutoff *time.Time
	if c.ttl > 0 {
		t := time.Now().Add(-c.ttl)
		cutoff = &t
	}

	var text string
	err := c.pool.QueryRow(ctx, query, key, cutoff).Scan(&text)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var v pgvector.Vector
	if err := v.Scan(text); err != nil {
		return nil, err
	}
	return v.Slice(), nil
}

// Set upserts the vector. Vectors of the wrong size are skipped since the
// column has a fixed dimension.
func (c *PgvectorCache) Set(ctx context.Context, key string, v matching.Vector) error {
	if len(v) != c.dims {
		return nil
	}
	stmt := fmt.Sprintf(`
		INSERT INTO %s (key, embedding, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			created_at = EXCLUDED.created_at`, c.table)
	_, err := c.pool.Exec(ctx, stmt, key, pgvector.NewVector(v))
	return err
}

func (c *PgvectorCache) Close() error {
	c.pool.Close()
	return nil
}
