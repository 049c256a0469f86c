package sandbox

import (
	"context"
)

// scopeLock is a single-holder cooperative lock that serializes savepoint
// commands on the shared transactional connection. Goroutines blocked in
// Acquire are queued and woken in FIFO order by the runtime, so concurrently
// issued top-level operations execute strictly in acquisition order.
type scopeLock struct {
	slot chan struct{}
}

func newScopeLock() *scopeLock {
	return &scopeLock{slot: make(chan struct{}, 1)}
}

// Acquire blocks until the lock is free or the context is done.
func (l *scopeLock) Acquire(ctx context.Context) error {
	select {
	case l.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees the lock. Releasing a lock that is not held is a programming
// error and panics.
func (l *scopeLock) Release() {
	select {
	case <-l.slot:
	default:
		panic("sandbox: release of a scope lock that is not held")
	}
}

// Held reports whether the lock is currently taken.
func (l *scopeLock) Held() bool {
	return len(l.slot) == 1
}
