// Package lease serializes dispatch ticks so that only one dispatcher drains
// the notification queue at a time.
package lease

import (
	"context"
	"errors"
	"sync"

	"github.com/amishk599/applynow/internal/model"
)

// ErrLost is the cancellation cause of a held context whose lease expired or
// was taken over.
var ErrLost = errors.New("lease lost")

// Ensure LocalLease implements model.Lease.
var _ model.Lease = (*LocalLease)(nil)

// LocalLease is an in-process lease for single-instance deployments.
type LocalLease struct {
	mu sync.Mutex
}

// NewLocalLease returns an unheld lease.
func NewLocalLease() *LocalLease {
	return &LocalLease{}
}

// Acquire takes the lease without blocking. ok is false when it is already
// held. An in-process lease cannot be lost, so held only ends with ctx or
// release.
func (l *LocalLease) Acquire(ctx context.Context) (context.Context, func(), bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, false, err
	}
	if !l.mu.TryLock() {
		return nil, nil, false, nil
	}
	held, cancel := context.WithCancel(ctx)
	var once sync.Once
	release := func() {
		once.Do(func() {
			cancel()
			l.mu.Unlock()
		})
	}
	return held, release, true, nil
}
