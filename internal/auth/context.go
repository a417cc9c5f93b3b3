// ABOUTME: Session context for tracking identity through request handlers
// ABOUTME: Provides WithSession/SessionFromContext for propagating sessions via context

package auth

import (
	"context"
)

// sessionContextKey is the key type for storing a Session in context.Context.
type sessionContextKey struct{}

// WithSession returns a new context with the Session attached.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// SessionFromContext retrieves the Session from the context, returning nil if not present.
func SessionFromContext(ctx context.Context) *Session {
	val := ctx.Value(sessionContextKey{})
	if val == nil {
		return nil
	}
	s, ok := val.(*Session)
	if !ok {
		return nil
	}
	return s
}

// MustSessionFromContext retrieves the Session from the context, panicking if not present.
func MustSessionFromContext(ctx context.Context) *Session {
	s := SessionFromContext(ctx)
	if s == nil {
		panic("auth: Session not found in context")
	}
	return s
}
