// ABOUTME: Thread-safe TTL cache of revoked session ids.
// ABOUTME: Used by the session manager to reject tokens after logout.

package revocation

import (
	"container/list"
	"errors"
	"sync"
	"time"
)

// ErrFull is returned by Revoke when maxSize live revocations are already
// tracked. Live revocations are never dropped to make room.
var ErrFull = errors.New("revocation cache full")

// entry stores the revocation time and list element for a session id.
type entry struct {
	revokedAt time.Time
	element   *list.Element
}

// Cache is a thread-safe, TTL-based, size-limited set of revoked session ids.
// Entries leave only by expiring. A doubly-linked list keeps revocation order
// so expired entries are swept from the front.
type Cache struct {
	mu      sync.RWMutex
	revoked map[string]*entry
	order   *list.List // session ids in revocation order (oldest at front)
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	done    chan struct{}
	closed  bool
}

// New creates a revocation cache. A background goroutine periodically drops
// revocations older than ttl.
func New(ttl time.Duration, maxSize int) *Cache {
	c := &Cache{
		revoked: make(map[string]*entry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// IsRevoked reports whether the session id was revoked less than ttl ago.
func (c *Cache) IsRevoked(sessionID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.revoked[sessionID]
	if !ok {
		return false
	}
	return c.now().Sub(e.revokedAt) < c.ttl
}

// Revoke records the session id as revoked. Revoking an already revoked id
// restarts its window. When the cache is full of live revocations it returns
// ErrFull and records nothing.
func (c *Cache) Revoke(sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.revoked[sessionID]; ok {
		e.revokedAt = now
		c.order.MoveToBack(e.element)
		return nil
	}

	if c.maxSize > 0 && len(c.revoked) >= c.maxSize {
		c.sweepLocked(now)
		if len(c.revoked) >= c.maxSize {
			return ErrFull
		}
	}

	c.revoked[sessionID] = &entry{
		revokedAt: now,
		element:   c.order.PushBack(sessionID),
	}
	return nil
}

// Len returns the number of tracked revocations, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.revoked)
}

// sweepLoop runs in a background goroutine until Close.
func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.done:
			return
		}
	}
}

// sweep drops expired revocations. Entries are ordered by revocation time,
// so it stops at the first live one.
func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked(c.now())
}

// sweepLocked does the work of sweep. Must be called with mu held.
func (c *Cache) sweepLocked(now time.Time) {
	for front := c.order.Front(); front != nil; front = c.order.Front() {
		id, _ := front.Value.(string)
		e := c.revoked[id]
		if e != nil && now.Sub(e.revokedAt) < c.ttl {
			return
		}
		c.order.Remove(front)
		delete(c.revoked, id)
	}
}

// Close stops the background sweeper. It is safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
