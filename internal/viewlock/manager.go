// ABOUTME: FIFO lock manager keyed by session id and view key
// ABOUTME: Explicit waiter queue per key, deleted once the queue drains

package viewlock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrWaitTimeout is returned when the caller's context ends before the lock
// was granted.
var ErrWaitTimeout = errors.New("timed out waiting for view lock")

// waiter is one queued Acquire call. ready is closed when it becomes the holder.
type waiter struct {
	ready   chan struct{}
	granted bool
}

// queue holds the waiters of one key; waiters[0] is the current holder.
type queue struct {
	waiters []*waiter
}

// Manager hands out per-(session, view) locks.
type Manager struct {
	mu          sync.Mutex
	queues      map[string]*queue
	holdTimeout time.Duration
	logger      *slog.Logger
}

// NewManager creates a lock manager. A positive holdTimeout force-releases
// holders that keep the lock longer than that.
func NewManager(holdTimeout time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		queues:      make(map[string]*queue),
		holdTimeout: holdTimeout,
		logger:      logger.With("component", "viewlock"),
	}
}

func lockKey(sessionID, viewKey string) string {
	return sessionID + "\x00" + viewKey
}

// Acquire waits for the lock of (sessionID, viewKey) and returns its release
// function. Release is idempotent. A context that is already done never
// acquires, even when the lock is free.
func (m *Manager) Acquire(ctx context.Context, sessionID, viewKey string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWaitTimeout, err)
	}
	key := lockKey(sessionID, viewKey)
	w := &waiter{ready: make(chan struct{})}

	m.mu.Lock()
	q := m.queues[key]
	if q == nil {
		q = &queue{}
		m.queues[key] = q
	}
	q.waiters = append(q.waiters, w)
	if len(q.waiters) == 1 {
		w.granted = true
		close(w.ready)
	}
	m.mu.Unlock()

	select {
	case <-w.ready:
	case <-ctx.Done():
		m.mu.Lock()
		if w.granted {
			// Granted while the context was ending; hand it on.
			m.mu.Unlock()
			m.release(key, w)
		} else {
			m.remove(key, w)
			m.mu.Unlock()
		}
		return nil, fmt.Errorf("%w: %w", ErrWaitTimeout, ctx.Err())
	}

	var timer *time.Timer
	if m.holdTimeout > 0 {
		timer = time.AfterFunc(m.holdTimeout, func() {
			if m.release(key, w) {
				m.logger.Warn("force-released view lock held past timeout",
					"session_id", sessionID,
					"view", viewKey,
					"hold_timeout", m.holdTimeout,
				)
			}
		})
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if timer != nil {
				timer.Stop()
			}
			m.release(key, w)
		})
	}, nil
}

// release drops w if it is the current holder of key and grants the lock to
// the next waiter. It reports whether w was the holder.
func (m *Manager) release(key string, w *waiter) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := m.queues[key]
	if q == nil || len(q.waiters) == 0 || q.waiters[0] != w {
		return false
	}
	q.waiters[0] = nil
	q.waiters = q.waiters[1:]
	if len(q.waiters) == 0 {
		delete(m.queues, key)
		return true
	}
	next := q.waiters[0]
	next.granted = true
	close(next.ready)
	return true
}

// remove drops a waiter that never became the holder. Caller holds m.mu.
func (m *Manager) remove(key string, w *waiter) {
	q := m.queues[key]
	if q == nil {
		return
	}
	for i, candidate := range q.waiters {
		if candidate == w {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			break
		}
	}
	if len(q.waiters) == 0 {
		delete(m.queues, key)
	}
}

// Pending reports how many calls hold or wait for the lock of the pair.
func (m *Manager) Pending(sessionID, viewKey string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q := m.queues[lockKey(sessionID, viewKey)]; q != nil {
		return len(q.waiters)
	}
	return 0
}

// Keys reports how many pairs currently have a holder.
func (m *Manager) Keys() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queues)
}
