package lock

import (
	"context"
	"time"
)

// NoopLocker implements Locker without any actual locking. Useful for tests
// and one-shot command-line runs where no scheduler competes.
type NoopLocker struct{}

// NewNoopLocker creates a locker that always grants the lock.
func NewNoopLocker() *NoopLocker {
	return &NoopLocker{}
}

func (n *NoopLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return true, nil
}

func (n *NoopLocker) Release(ctx context.Context, key string) (bool, error) {
	return true, nil
}

// Ensure NoopLocker implements Locker.
var _ Locker = (*NoopLocker)(nil)
