// ABOUTME: Package view defines view controllers, callables and their registry.
// ABOUTME: Controllers are registered once at startup and looked up per RPC call.

// Package view defines the view controller model served by the RPC pipeline.
//
// A controller groups the callable methods of one view under a unique key,
// together with optional role constraints and lifecycle hooks:
//
//   - Init creates the view data the first time a session calls the view.
//   - Authorize runs before hydration with the base context.
//   - BeforeCall runs after hydration with the full context.
//
// Controllers are usually declared with the typed helpers, which take care of
// decoding arguments and view data:
//
//	d := view.Define[counterState]("counter").
//		Init(func(ctx context.Context, base *view.BaseContext) (*counterState, error) {
//			return &counterState{}, nil
//		})
//	view.Handle(d, "increment", func(ctx context.Context, args incrementArgs, s *counterState, vc *view.Context) (int, error) {
//		s.Counter += args.Amount
//		return s.Counter, nil
//	})
//
// The Registry is built once from all controllers and is immutable afterwards.
// Duplicate view keys, or duplicate callable keys within a view, are reported
// by NewRegistry.
package view
