// ABOUTME: View controller, callable and execution context types
// ABOUTME: Hooks receive either the base context or the hydrated full context

package view

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/2389/viewgate/internal/auth"
)

// ErrInvalidArgs is returned by typed callables when the arguments cannot be
// decoded into the callable's argument type.
var ErrInvalidArgs = errors.New("invalid arguments")

// BaseContext is available to every hook, before view data is loaded.
type BaseContext struct {
	RequestID string
	// DB is the handle injected by the host, passed through untouched.
	DB      any
	Logger  *slog.Logger
	Session *auth.Session // nil for anonymous calls
}

// Context is the full context handed to BeforeCall and methods.
// Methods mutate ViewData in place; it is persisted after the call.
type Context struct {
	BaseContext
	ViewData any
}

// Initializer creates the view data for a session that has none yet.
type Initializer func(ctx context.Context, base *BaseContext) (any, error)

// AuthorizeHook runs before hydration. A non-nil error aborts the call.
type AuthorizeHook func(ctx context.Context, base *BaseContext) error

// BeforeCallHook runs after hydration. A non-nil error aborts the call.
type BeforeCallHook func(ctx context.Context, vc *Context) error

// Method is a callable's implementation. args is the raw JSON sent by the client.
type Method func(ctx context.Context, args json.RawMessage, vc *Context) (any, error)

// Callable is one method exposed by a view.
type Callable struct {
	Key string
	// AllowedRoles, when non-empty, requires at least one matching session role.
	AllowedRoles []string
	// AllowUnauthenticated lets the method run without credentials. Such calls
	// are stateless: no lock, no view data.
	AllowUnauthenticated bool
	Description          string
	Invoke               Method
}

// Controller declares a view.
type Controller struct {
	Key          string
	AllowedRoles []string
	Description  string // Markdown
	// NewState returns a pointer to decode stored view data into. When nil the
	// data is decoded into a generic value.
	NewState   func() any
	Init       Initializer
	Authorize  AuthorizeHook
	BeforeCall BeforeCallHook
	Callables  []Callable
}

// DecodeState decodes a stored blob into the controller's state type.
func (c *Controller) DecodeState(data []byte) (any, error) {
	if c.NewState == nil {
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
	v := c.NewState()
	if err := json.Unmarshal(data, v); err != nil {
		return nil, err
	}
	return v, nil
}
