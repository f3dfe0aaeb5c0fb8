package acousticmatch

import "sync"

// ingestLock is a non-reentrant mutex that hands ownership to waiters in the
// order they arrived. It is only ever taken through withLock.
type ingestLock struct {
	mu      sync.Mutex
	held    bool
	waiters []chan struct{}
}

func (l *ingestLock) lock() {
	l.mu.Lock()
	if !l.held {
		l.held = true
		l.mu.Unlock()
		return
	}
	ready := make(chan struct{})
	l.waiters = append(l.waiters, ready)
	l.mu.Unlock()

	<-ready
}

func (l *ingestLock) unlock() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		panic("acousticmatch: unlock of unlocked ingest lock")
	}
	if len(l.waiters) == 0 {
		l.held = false
		return
	}
	// ownership passes directly to the oldest waiter; held stays true
	next := l.waiters[0]
	l.waiters[0] = nil
	l.waiters = l.waiters[1:]
	close(next)
}

// withLock runs fn while holding the lock. The lock is released on every
// exit from fn, including a panic.
func (l *ingestLock) withLock(fn func() error) error {
	l.lock()
	defer l.unlock()
	return fn()
}
