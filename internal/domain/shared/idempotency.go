package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers keys that have already been handled, such as
// webhook delivery ids or published domain event ids.
type IdempotencyStore interface {
	// MarkProcessed records key with a TTL. It returns true if the key was
	// newly recorded and false if it had already been seen.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether key has already been recorded.
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Forget removes key so a failed delivery can be retried.
	Forget(ctx context.Context, key string) error

	// Close releases resources held by the store
	Close() error
}
