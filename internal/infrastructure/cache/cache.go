package cache

import (
	"context"
	"time"
)

// Cache is a string key-value store with per-entry TTL, used to cache search
// responses. Backed by Redis when configured, by process memory otherwise.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
