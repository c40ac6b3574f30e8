// File: internal/services/conversation/locks_test.go
package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockManagerSerializesPerKey(t *testing.T) {
	m := NewLockManager()

	m.Lock("thread:a")

	// A different key is independent.
	require.NoError(t, m.TryLockWithTimeout(context.Background(), "thread:b", time.Second))
	m.Unlock("thread:b")

	// The held key times out.
	err := m.TryLockWithTimeout(context.Background(), "thread:a", 20*time.Millisecond)
	assert.Error(t, err)

	m.Unlock("thread:a")
	require.NoError(t, m.TryLockWithTimeout(context.Background(), "thread:a", time.Second))
	m.Unlock("thread:a")
}

func TestLockManagerRespectsContext(t *testing.T) {
	m := NewLockManager()
	m.Lock("thread:a")
	defer m.Unlock("thread:a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.TryLockWithTimeout(ctx, "thread:a", time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLockManagerReleasesLateAcquisition(t *testing.T) {
	m := NewLockManager()
	m.Lock("thread:a")

	// This attempt times out; its pending acquisition must be handed
	// back once the holder releases.
	err := m.TryLockWithTimeout(context.Background(), "thread:a", 10*time.Millisecond)
	require.Error(t, err)

	m.Unlock("thread:a")

	// The key becomes acquirable again.
	require.Eventually(t, func() bool {
		if err := m.TryLockWithTimeout(context.Background(), "thread:a", 50*time.Millisecond); err != nil {
			return false
		}
		m.Unlock("thread:a")
		return true
	}, time.Second, 20*time.Millisecond)
}

func TestLockManagerEvictsReleasedKeys(t *testing.T) {
	m := NewLockManager()

	for i := 0; i < 100; i++ {
		key := "thread:" + string(rune('a'+i%26))
		m.Lock(key)
		m.Unlock(key)
	}

	m.mu.Lock()
	size := len(m.locks)
	m.mu.Unlock()
	assert.Zero(t, size)

	// A timed-out waiter keeps its entry pinned only until the pending
	// acquisition is handed back.
	m.Lock("thread:a")
	require.Error(t, m.TryLockWithTimeout(context.Background(), "thread:a", 10*time.Millisecond))
	m.Unlock("thread:a")

	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.locks) == 0
	}, time.Second, 20*time.Millisecond)
}
