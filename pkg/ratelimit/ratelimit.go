package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Lock serializes calls and enforces a minimum wait between them.
type Lock interface {
	Lock(ctx context.Context) func()
}

func New(wait time.Duration) Lock {
	return &lock{wait: wait}
}

type lock struct {
	mu   sync.Mutex
	wait time.Duration
	last time.Time
}

// Lock blocks until the previous holder released and the wait period
// elapsed, then returns the unlock function.
func (l *lock) Lock(ctx context.Context) func() {
	l.mu.Lock()
	if elapsed := time.Since(l.last); elapsed < l.wait {
		t := time.NewTimer(l.wait - elapsed)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
		}
	}
	return func() {
		l.last = time.Now()
		l.mu.Unlock()
	}
}
