// Package lock provides locking for maintenance tasks.
// The store is single-node, so an in-memory locker is sufficient; the
// interface keeps business logic independent of the implementation.
package lock

import (
	"context"
	"time"
)

// Locker serializes operations that must not run concurrently, such as
// overlapping orphan scans.
type Locker interface {
	// Acquire attempts to acquire a lock. Returns true if the lock was
	// acquired, false if it is held elsewhere. The lock expires after ttl.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release releases a lock. Returns true if the lock was released, false
	// if it wasn't held.
	Release(ctx context.Context, key string) (bool, error)
}

// =============================================================================
// Common Lock Keys
// =============================================================================

// Keys provides lock key generation for common scenarios.
var Keys = lockKeys{}

type lockKeys struct{}

// OrphanScan returns the lock key guarding the blob orphan scan.
func (lockKeys) OrphanScan() string {
	return "lock:gc:orphan-scan"
}
