package redis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/calabi/internal/domain"
)

// scriptedLease returns the queued refresh results in order, then nil.
type scriptedLease struct {
	mu       sync.Mutex
	results  []error
	refresh  int
	released int
}

func (f *scriptedLease) Refresh(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refresh++
	if len(f.results) == 0 {
		return nil
	}
	err := f.results[0]
	f.results = f.results[1:]
	return err
}

func (f *scriptedLease) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released++
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHold_StopsOnCancel(t *testing.T) {
	lease := &scriptedLease{}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := hold(ctx, lease, 30*time.Millisecond, discardLogger())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, lease.refresh, 3)
	assert.Equal(t, 1, lease.released)
}

func TestHold_LockLost(t *testing.T) {
	lease := &scriptedLease{results: []error{nil, fmt.Errorf("refresh: %w", domain.ErrLockLost)}}

	err := hold(context.Background(), lease, 30*time.Millisecond, discardLogger())
	require.ErrorIs(t, err, domain.ErrLockLost)
	assert.Equal(t, 2, lease.refresh)
	assert.Equal(t, 1, lease.released)
}

func TestHold_TransientErrorsUntilExpiry(t *testing.T) {
	flaky := errors.New("connection reset")
	lease := &scriptedLease{results: []error{flaky, flaky, flaky, flaky, flaky, flaky, flaky, flaky}}

	err := hold(context.Background(), lease, 30*time.Millisecond, discardLogger())
	require.ErrorIs(t, err, domain.ErrLockLost)
	assert.Contains(t, err.Error(), "refresh failures")
}

func TestHold_RecoversFromTransientError(t *testing.T) {
	lease := &scriptedLease{results: []error{errors.New("timeout")}}
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	err := hold(ctx, lease, 30*time.Millisecond, discardLogger())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestLockManager_Redis runs against a live server when CALABI_TEST_REDIS_ADDR
// is set.
func TestLockManager_Redis(t *testing.T) {
	addr := os.Getenv("CALABI_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CALABI_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	c, err := New(ctx, ClientConfig{Addr: addr, PoolSize: 2})
	require.NoError(t, err)
	defer c.Close()

	lm := NewLockManager(c)
	key := fmt.Sprintf("calabi-test-%d", time.Now().UnixNano())

	first, err := lm.AcquireLease(ctx, key, 2*time.Second)
	require.NoError(t, err)

	_, err = lm.Acquire(ctx, key, 2*time.Second)
	require.ErrorIs(t, err, domain.ErrLockHeld)

	require.NoError(t, first.Refresh(ctx))
	first.Release()
	first.Release()

	require.ErrorIs(t, first.Refresh(ctx), domain.ErrLockLost)

	second, err := lm.Acquire(ctx, key, 2*time.Second)
	require.NoError(t, err)
	second.Release()
}
