package repository

import (
	"context"
	"time"
)

// ResponseCache maps a request fingerprint to a raw upstream response for a
// bounded time. A value returned by Get was stored less than its ttl ago.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
	Close() error
}
