package ledger

import (
	"context"
	"sync"
)

// Locker hands out mutual exclusion scoped to account ids. Waiting for a
// lock gives up when the context is done.
type Locker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{} // Holds one token while the key is locked
	refs int           // Holders plus waiters
}

// NewLocker returns an empty lock table
func NewLocker() *Locker {
	return &Locker{slots: make(map[string]*slot)}
}

// Lock acquires the lock for key and returns the function that releases it
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	s := l.acquire(key)
	select {
	case s.ch <- struct{}{}:
		return func() { l.release(key, s, true) }, nil
	case <-ctx.Done():
		l.release(key, s, false)
		return nil, ctx.Err()
	}
}

// LockPair locks both keys in sorted order so opposite transfers between
// the same two accounts cannot deadlock. Equal keys are locked once.
func (l *Locker) LockPair(ctx context.Context, a, b string) (func(), error) {
	if a == b {
		return l.Lock(ctx, a)
	}
	if b < a {
		a, b = b, a
	}
	unlockFirst, err := l.Lock(ctx, a)
	if err != nil {
		return nil, err
	}
	unlockSecond, err := l.Lock(ctx, b)
	if err != nil {
		unlockFirst()
		return nil, err
	}
	return func() {
		unlockSecond()
		unlockFirst()
	}, nil
}

func (l *Locker) acquire(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *Locker) release(key string, s *slot, held bool) {
	if held {
		<-s.ch
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key) // Keep the table proportional to live keys
	}
}

// size is the number of keys currently tracked
func (l *Locker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
