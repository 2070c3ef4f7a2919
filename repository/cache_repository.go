package repository

import (
	"context"
	"time"
)

// CacheRepository is a string key/value store with per-entry expiry.
// A ttl of zero means the entry does not expire.
type CacheRepository interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}
