// Package cache stores rendered API responses. The survey table never
// changes while the process runs, so responses for a given source
// fingerprint and URL can be reused until they expire.
package cache

import (
	"context"
	"time"
)

// Provider is a byte cache keyed by string.
type Provider interface {
	// Get reports ok=false on a miss; err is reserved for backend failures.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
