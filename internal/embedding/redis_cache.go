package embedding

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/matching"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores JSON encoded vectors in Redis with a TTL
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to cfg.Redis and pings it
func NewRedisCache(ctx context.Context, cfg config.CacheConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.NewCacheError(errors.ErrCodeCacheFailed, "failed to connect to redis", err).
			WithContext("addr", cfg.Redis.Addr)
	}
	return &RedisCache{client: client, ttl: cfg.TTL}, nil
}

func (r *RedisCache) Name() string { return "redis" }

func (r *RedisCache) Get(ctx context.Context, key string) (matching.Vector, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var v matching.Vector
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, v matching.Vector) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	// zero expiration keeps the key forever
	return r.client.Set(ctx, key, data, max(r.ttl, 0)).Err()
}

func (r *RedisCache) Close() error { return r.client.Close() }
