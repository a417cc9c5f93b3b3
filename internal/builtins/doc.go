// Package builtins provides the view controllers shipped with the gateway.
//
// # Overview
//
// Built-in views are registered at startup next to any host-defined views.
// They double as worked examples of the view package's typed helpers.
//
// # Views
//
// counter - a per-session integer:
//
//   - increment: add {amount} (default 1) and return the new value
//   - get: return the current value
//   - reset: set the value back to zero; requires the "admin" role
//   - describe: anonymous; returns the view's description
//
// notes - per-session key/value notes:
//
//   - note_set: store {key, value}
//   - note_get: return the value for {key}
//   - note_list: return all keys, sorted
//   - note_delete: remove {key}
//
// Sessions holding the "suspended" role are refused by the notes view's
// authorize hook.
//
// # Registration
//
//	registry, err := view.NewRegistry(builtins.All()...)
package builtins
