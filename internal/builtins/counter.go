// ABOUTME: Counter view keeps one integer per session.
// ABOUTME: Reset requires the "admin" role.

package builtins

import (
	"context"

	"github.com/2389/viewgate/internal/view"
)

const counterDescription = `A per-session **counter**.

Call ` + "`increment`" + ` with ` + "`{\"amount\": n}`" + ` to add to it.`

// CounterState is the counter view's data.
type CounterState struct {
	Counter int `json:"counter"`
}

type incrementInput struct {
	Amount *int `json:"amount"` // nil when omitted
}

// CounterResult is returned by the counter's mutating methods.
type CounterResult struct {
	Counter int `json:"counter"`
}

type emptyInput struct{}

// Counter creates the counter view.
func Counter() view.Controller {
	d := view.Define[CounterState]("counter").
		Describe(counterDescription).
		Init(func(ctx context.Context, base *view.BaseContext) (*CounterState, error) {
			return &CounterState{}, nil
		})

	view.Handle(d, "increment", func(ctx context.Context, in incrementInput, s *CounterState, vc *view.Context) (CounterResult, error) {
		amount := 1
		if in.Amount != nil {
			amount = *in.Amount
		}
		s.Counter += amount
		return CounterResult{Counter: s.Counter}, nil
	}, view.WithDescription("Adds `amount` (default 1)."))

	view.Handle(d, "get", func(ctx context.Context, in emptyInput, s *CounterState, vc *view.Context) (CounterResult, error) {
		return CounterResult{Counter: s.Counter}, nil
	}, view.WithDescription("Returns the current value."))

	view.Handle(d, "reset", func(ctx context.Context, in emptyInput, s *CounterState, vc *view.Context) (CounterResult, error) {
		s.Counter = 0
		vc.Logger.Info("counter reset", "user_id", vc.Session.UserID)
		return CounterResult{Counter: 0}, nil
	}, view.WithRoles("admin"), view.WithDescription("Sets the value to zero. Requires `admin`."))

	view.Handle(d, "describe", func(ctx context.Context, in emptyInput, s *CounterState, vc *view.Context) (string, error) {
		return counterDescription, nil
	}, view.Public(), view.WithDescription("Anonymous. Returns this description."))

	return d.Controller()
}
