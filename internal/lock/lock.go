// Package lock provides keyed mutual exclusion that respects context
// cancellation. RedisLocker serializes across processes; LocalLocker only
// within one process.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrNotHeld is returned by a release func when the lock expired or was
// taken over before release.
var ErrNotHeld = errors.New("lock not held")

// Locker acquires an exclusive lock on key, blocking until it is free or
// ctx ends. The returned func releases the lock.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func() error, err error)
}

// LocalLocker is an in-process Locker built from per-key semaphores.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	sem     chan struct{}
	waiters int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*slot)}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (func() error, error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{sem: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.waiters++
	l.mu.Unlock()

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		l.done(key, s)
		return nil, ctx.Err()
	}

	released := false
	return func() error {
		if released {
			return ErrNotHeld
		}
		released = true
		<-s.sem
		l.done(key, s)
		return nil
	}, nil
}

// done drops the slot once nobody holds or waits for it.
func (l *LocalLocker) done(key string, s *slot) {
	l.mu.Lock()
	s.waiters--
	if s.waiters == 0 {
		delete(l.slots, key)
	}
	l.mu.Unlock()
}
