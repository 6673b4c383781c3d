package domain

import (
	"context"
	"time"
)

// Lease is a held lock. Refresh extends it and returns ErrLockLost once
// another holder owns the key or it has expired. Release is idempotent.
type Lease interface {
	Refresh(ctx context.Context) error
	Release()
}

// LockManager provides distributed locking. Acquire returns ErrLockHeld when
// the key is already taken.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}
