// ABOUTME: Generic builders for declaring controllers with typed state and arguments
// ABOUTME: Handle decodes JSON args and asserts the view data to the state type

package view

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Definition builds a Controller whose view data has type S.
type Definition[S any] struct {
	c Controller
}

// Define starts a controller declaration for the view key.
func Define[S any](key string) *Definition[S] {
	return &Definition[S]{c: Controller{
		Key:      key,
		NewState: func() any { return new(S) },
	}}
}

// Roles restricts every callable of the view to sessions holding one of roles.
func (d *Definition[S]) Roles(roles ...string) *Definition[S] {
	d.c.AllowedRoles = roles
	return d
}

// Describe sets the Markdown description shown in the catalogue.
func (d *Definition[S]) Describe(markdown string) *Definition[S] {
	d.c.Description = markdown
	return d
}

// Init sets the initializer.
func (d *Definition[S]) Init(fn func(ctx context.Context, base *BaseContext) (*S, error)) *Definition[S] {
	d.c.Init = func(ctx context.Context, base *BaseContext) (any, error) {
		s, err := fn(ctx, base)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return d
}

// OnAuthorize sets the authorize hook.
func (d *Definition[S]) OnAuthorize(fn AuthorizeHook) *Definition[S] {
	d.c.Authorize = fn
	return d
}

// OnBeforeCall sets the before-call hook. state is nil for anonymous calls.
func (d *Definition[S]) OnBeforeCall(fn func(ctx context.Context, state *S, vc *Context) error) *Definition[S] {
	d.c.BeforeCall = func(ctx context.Context, vc *Context) error {
		return fn(ctx, stateOf[S](vc), vc)
	}
	return d
}

// Controller returns the declared controller.
func (d *Definition[S]) Controller() Controller {
	c := d.c
	c.Callables = append([]Callable(nil), d.c.Callables...)
	return c
}

// CallableOption configures a callable added with Handle.
type CallableOption func(*Callable)

// WithRoles restricts the callable to sessions holding one of roles.
func WithRoles(roles ...string) CallableOption {
	return func(c *Callable) { c.AllowedRoles = roles }
}

// Public lets the callable run without credentials.
func Public() CallableOption {
	return func(c *Callable) { c.AllowUnauthenticated = true }
}

// WithDescription sets the callable's catalogue description.
func WithDescription(markdown string) CallableOption {
	return func(c *Callable) { c.Description = markdown }
}

// Handle adds a callable whose arguments decode into A and whose result is R.
// Empty or null args leave A at its zero value.
func Handle[S, A, R any](d *Definition[S], key string, fn func(ctx context.Context, args A, state *S, vc *Context) (R, error), opts ...CallableOption) {
	c := Callable{
		Key: key,
		Invoke: func(ctx context.Context, raw json.RawMessage, vc *Context) (any, error) {
			var args A
			if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
				if err := json.Unmarshal(trimmed, &args); err != nil {
					return nil, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
				}
			}
			return fn(ctx, args, stateOf[S](vc), vc)
		},
	}
	for _, opt := range opts {
		opt(&c)
	}
	d.c.Callables = append(d.c.Callables, c)
}

func stateOf[S any](vc *Context) *S {
	if vc == nil {
		return nil
	}
	s, _ := vc.ViewData.(*S)
	return s
}
