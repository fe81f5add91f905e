// Package lock provides run-locks that keep periodic jobs from overlapping,
// within one process or across instances sharing a Redis.
package lock

import (
	"context"
	"sync"
	"time"
)

// Locker acquires named locks without blocking. ok is false when another
// holder has the lock. release must be called once the work is done.
type Locker interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// Local is an in-process Locker. The ttl is ignored; a lock is held until
// released.
type Local struct {
	mu   sync.Mutex
	held map[string]bool
}

var _ Locker = (*Local)(nil)

// NewLocal creates an in-process Locker.
func NewLocal() *Local {
	return &Local{held: make(map[string]bool)}
}

func (l *Local) TryAcquire(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, true, nil
}
