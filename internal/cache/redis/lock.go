package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/calabi/internal/domain"
)

// unlockLua deletes a lock key only if its value matches the caller's token,
// so one holder can never release another holder's lock.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// refreshLua extends the TTL of a lock key only while the caller still owns
// it.
const refreshLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0
`

// LockManager implements domain.LockManager using SET NX with a TTL and
// Lua-based conditional refresh and unlock.
type LockManager struct {
	rdb       *redis.Client
	unlockSc  *redis.Script
	refreshSc *redis.Script
}

// NewLockManager creates a LockManager backed by the given Client.
func NewLockManager(c *Client) *LockManager {
	return &LockManager{
		rdb:       c.rdb,
		unlockSc:  redis.NewScript(unlockLua),
		refreshSc: redis.NewScript(refreshLua),
	}
}

func lockKey(key string) string {
	return "lock:" + key
}

// Acquire attempts to take the lock for key with the given TTL. It returns
// domain.ErrLockHeld if another party holds it.
func (lm *LockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (domain.Lease, error) {
	return lm.AcquireLease(ctx, key, ttl)
}

// AcquireLease is Acquire returning the concrete *Lease, whose Hold method
// keeps the lock alive.
func (lm *LockManager) AcquireLease(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	token := uuid.NewString()
	lk := lockKey(key)

	ok, err := lm.rdb.SetNX(ctx, lk, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", key, domain.ErrLockHeld)
	}

	return &Lease{lm: lm, key: key, redisKey: lk, token: token, ttl: ttl}, nil
}

// Lease is a lock held in Redis under a random token.
type Lease struct {
	lm       *LockManager
	key      string
	redisKey string
	token    string
	ttl      time.Duration

	releaseOnce sync.Once
}

// Key returns the logical lock name.
func (l *Lease) Key() string {
	return l.key
}

// Refresh resets the lock TTL. It returns domain.ErrLockLost when the key no
// longer carries this lease's token.
func (l *Lease) Refresh(ctx context.Context) error {
	n, err := l.lm.refreshSc.Run(ctx, l.lm.rdb, []string{l.redisKey}, l.token, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("redis: refresh lock %s: %w", l.key, err)
	}
	if n == 0 {
		return fmt.Errorf("redis: refresh lock %s: %w", l.key, domain.ErrLockLost)
	}
	return nil
}

// Release deletes the lock if it is still ours. It is safe to call more
// than once.
func (l *Lease) Release() {
	l.releaseOnce.Do(func() {
		// Use a background context so unlock succeeds even if the caller's
		// context is already cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = l.lm.unlockSc.Run(ctx, l.lm.rdb, []string{l.redisKey}, l.token).Err()
	})
}

// Hold refreshes the lease every third of its TTL until ctx is cancelled or
// the lease is lost. Refresh errors other than ErrLockLost are retried until
// the TTL would have run out. The lease is released on return.
func (l *Lease) Hold(ctx context.Context, logger *slog.Logger) error {
	return hold(ctx, l, l.ttl, logger)
}

// hold is the refresh loop behind Lease.Hold, separated from Redis so it can
// be driven by a fake lease.
func hold(ctx context.Context, lease domain.Lease, ttl time.Duration, logger *slog.Logger) error {
	defer lease.Release()

	every := ttl / 3
	if every <= 0 {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	lastOK := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		err := lease.Refresh(ctx)
		switch {
		case err == nil:
			lastOK = time.Now()
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, domain.ErrLockLost):
			return err
		default:
			if time.Since(lastOK) >= ttl {
				return fmt.Errorf("redis: lock expired after refresh failures: %w", domain.ErrLockLost)
			}
			logger.WarnContext(ctx, "lock refresh failed, retrying", slog.String("error", err.Error()))
		}
	}
}

// Compile-time interface checks.
var (
	_ domain.LockManager = (*LockManager)(nil)
	_ domain.Lease       = (*Lease)(nil)
)
