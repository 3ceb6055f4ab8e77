package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"sync"
	"time"

	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/matching"
)

// Cache stores vectors by key. Only vectors are cached, never scores.
// A miss is (nil, nil).
type Cache interface {
	Get(ctx context.Context, key string) (matching.Vector, error)
	Set(ctx context.Context, key string, v matching.Vector) error
	Name() string
	Close() error
}

// NewCache builds the cache backend named by cfg.Backend. "none" returns nil.
func NewCache(ctx context.Context, cfg config.CacheConfig, logger *errors.Logger) (Cache, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryCache(cfg.TTL), nil
	case "redis":
		return NewRedisCache(ctx, cfg)
	case "postgres":
		return NewPgvectorCache(ctx, cfg)
	default:
		logger.Warn("Unknown cache backend, caching disabled", "backend", cfg.Backend)
		return nil, nil
	}
}

// cacheKey scopes the text hash by provider and model, since vectors from
// different models are not comparable
func cacheKey(prefix, provider, model, text string) string {
	h := sha256.New()
	h.Write([]byte(provider))
	h.Write([]byte{0})
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return prefix + hex.EncodeToString(h.Sum(nil))
}

type memoryEntry struct {
	vector  matching.Vector
	expires time.Time
}

// MemoryCache is a process local cache with optional expiry
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache creates a cache whose entries live for ttl. ttl <= 0 never expires.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryCache) Name() string { return "memory" }

func (m *MemoryCache) Get(_ context.Context, key string) (matching.Vector, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if !entry.expires.IsZero() && m.now().After(entry.expires) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, nil
	}
	return slices.Clone(entry.vector), nil
}

func (m *MemoryCache) Set(_ context.Context, key string, v matching.Vector) error {
	entry := memoryEntry{vector: slices.Clone(v)}
	if m.ttl > 0 {
		entry.expires = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, including expired ones not yet evicted
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryCache) Close() error { return nil }
