// ABOUTME: This file defines the cache contract shared by the memory and redis backends
// ABOUTME: Used for provider model lists and other short-lived lookup results
package cache

import (
	"context"
	"fmt"
	"time"

	"rss-digest/config"
)

// Cache is a TTL'd byte store. A miss is (nil, false, nil), never an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// New builds the cache backend named by the configuration.
func New(cfg config.CacheConfig) (Cache, error) {
	switch cfg.Backend {
	case "redis":
		return NewRedisCache(cfg), nil
	case "memory":
		return NewMemoryCache(cfg.MaxItems, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}
