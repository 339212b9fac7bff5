package graph

import (
	"errors"
	"sync"
	"sync/atomic"
)

var errPoisoned = errors.New("lock poisoned by a panic in an earlier writer")

// rwLock is a reader/writer lock that becomes poisoned when a goroutine
// panics while holding it for writing. A poisoned lock refuses every later
// acquisition with errPoisoned. Readers never poison.
type rwLock struct {
	mu       sync.RWMutex
	poisoned atomic.Bool
}

// write runs fn with the lock held exclusively.
// The only error write itself produces is errPoisoned; fn's error is returned as is.
func (l *rwLock) write(fn func() error) error {
	l.mu.Lock()
	if l.poisoned.Load() {
		l.mu.Unlock()
		return errPoisoned
	}

	completed := false
	defer func() {
		if !completed {
			l.poisoned.Store(true)
		}
		l.mu.Unlock()
	}()

	err := fn()
	completed = true
	return err
}

// read runs fn with the lock held shared.
func (l *rwLock) read(fn func() error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.poisoned.Load() {
		return errPoisoned
	}
	return fn()
}

// readIgnoringPoison runs fn with the lock held shared even when poisoned.
// Reserved for pure predicates over a single field.
func (l *rwLock) readIgnoringPoison(fn func()) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	fn()
}

// isPoisoned reports the poison flag without acquiring the lock.
func (l *rwLock) isPoisoned() bool {
	return l.poisoned.Load()
}
