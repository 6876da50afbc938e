// Package cache holds the stores behind the full-page cache.
package cache

import (
	"context"
	"time"
)

// Store is a concurrency-safe byte store with per-entry expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Clear(ctx context.Context) error
}
