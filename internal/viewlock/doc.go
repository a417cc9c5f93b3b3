// ABOUTME: Package viewlock serializes calls per (session, view) pair.
// ABOUTME: In-process FIFO lock manager with bounded waits and forced release.

// Package viewlock provides the per-(session, view) lock manager.
//
// # Overview
//
// At most one call holds the lock for a given (sessionID, viewKey) pair at a
// time. Waiters are admitted strictly in arrival order. Locks for different
// pairs never block each other, and the bookkeeping for a pair is dropped as
// soon as its queue drains, so the number of tracked keys is bounded by the
// number of pairs with in-flight calls.
//
// # Waiting and holding
//
// Acquire blocks until the caller is at the head of the queue or its context
// is done. A waiter whose context ends is removed from the queue without
// disturbing the order of the others and gets ErrWaitTimeout.
//
// A Manager created with a hold timeout force-releases a holder that has not
// released in time and logs a warning. The holder's own release becomes a
// no-op afterwards.
//
// # Usage
//
//	locks := viewlock.NewManager(0, logger)
//	release, err := locks.Acquire(ctx, session.SessionID, "counter")
//	if err != nil {
//		return err
//	}
//	defer release()
//
// The lock is process-local; it does not coordinate across processes.
package viewlock
