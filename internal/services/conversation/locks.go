// File: internal/services/conversation/locks.go
package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LockManager provides keyed in-process mutexes. The orchestrator holds
// a per-thread lock across assemble-context, provider call and persist
// so two concurrent sends to one thread cannot interleave, and a per
// (user, character) lock so concurrent resolve-or-create calls cannot
// race a duplicate thread into existence.
//
// Entries are refcounted and evicted once the last holder releases, so
// the map does not grow with the number of distinct keys ever seen.
type LockManager struct {
	locks map[string]*lockEntry
	mu    sync.Mutex
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewLockManager() *LockManager {
	return &LockManager{
		locks: make(map[string]*lockEntry),
	}
}

func (m *LockManager) acquire(key string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.locks[key]
	if e == nil {
		e = &lockEntry{}
		m.locks[key] = e
	}
	e.refs++
	return e
}

func (m *LockManager) release(key string, e *lockEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(m.locks, key)
	}
}

// Lock acquires the lock for a key.
func (m *LockManager) Lock(key string) {
	m.acquire(key).mu.Lock()
}

// Unlock releases the lock for a key.
func (m *LockManager) Unlock(key string) {
	m.mu.Lock()
	e := m.locks[key]
	m.mu.Unlock()
	if e == nil {
		panic("conversation: unlock of unheld key " + key)
	}
	e.mu.Unlock()
	m.release(key, e)
}

// TryLockWithTimeout attempts to acquire the lock within the timeout.
// The provider call under the lock is itself deadline-bounded, so a
// stalled peer releases within its own timeout.
func (m *LockManager) TryLockWithTimeout(ctx context.Context, key string, timeout time.Duration) error {
	e := m.acquire(key)

	done := make(chan struct{})
	go func() {
		e.mu.Lock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		// The goroutine will eventually acquire; hand the lock back.
		go func() {
			<-done
			e.mu.Unlock()
			m.release(key, e)
		}()
		return fmt.Errorf("timeout acquiring lock for %s", key)
	case <-ctx.Done():
		go func() {
			<-done
			e.mu.Unlock()
			m.release(key, e)
		}()
		return ctx.Err()
	}
}
