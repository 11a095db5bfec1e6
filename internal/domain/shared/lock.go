package shared

import (
	"context"
	"time"
)

// Locker grants exclusive, expiring leases on named resources.
type Locker interface {
	// TryLock acquires key for at most ttl without waiting. ok is false when
	// another holder owns it. unlock releases only the caller's own lease.
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, ok bool, err error)
}
