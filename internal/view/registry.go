// ABOUTME: Immutable registry of view controllers keyed by view key
// ABOUTME: Rejects duplicate views and duplicate callables at construction

package view

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDuplicateView indicates two controllers share a key.
var ErrDuplicateView = errors.New("duplicate view key")

// ErrDuplicateCallable indicates two callables of one controller share a key.
var ErrDuplicateCallable = errors.New("duplicate callable key")

// ErrInvalidController indicates a controller or callable is missing required fields.
var ErrInvalidController = errors.New("invalid controller")

// Entry is a registered controller with its callables indexed by key.
type Entry struct {
	Controller
	callables map[string]*Callable
}

// Callable looks up a method of the view.
func (e *Entry) Callable(key string) (*Callable, bool) {
	c, ok := e.callables[key]
	return c, ok
}

// CallableKeys returns the method keys of the view, sorted.
func (e *Entry) CallableKeys() []string {
	keys := make([]string, 0, len(e.callables))
	for k := range e.callables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Registry maps view keys to controllers. It is read-only after NewRegistry.
type Registry struct {
	entries map[string]*Entry
}

// NewRegistry validates and indexes the controllers.
func NewRegistry(controllers ...Controller) (*Registry, error) {
	r := &Registry{entries: make(map[string]*Entry, len(controllers))}
	for _, c := range controllers {
		if c.Key == "" {
			return nil, fmt.Errorf("%w: empty view key", ErrInvalidController)
		}
		if _, exists := r.entries[c.Key]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateView, c.Key)
		}

		e := &Entry{Controller: c, callables: make(map[string]*Callable, len(c.Callables))}
		e.Controller.Callables = append([]Callable(nil), c.Callables...)
		for i := range c.Callables {
			m := &e.Controller.Callables[i]
			if m.Key == "" {
				return nil, fmt.Errorf("%w: view %q has a callable with an empty key", ErrInvalidController, c.Key)
			}
			if m.Invoke == nil {
				return nil, fmt.Errorf("%w: view %q callable %q has no implementation", ErrInvalidController, c.Key, m.Key)
			}
			if _, exists := e.callables[m.Key]; exists {
				return nil, fmt.Errorf("%w: view %q callable %q", ErrDuplicateCallable, c.Key, m.Key)
			}
			e.callables[m.Key] = m
		}
		r.entries[c.Key] = e
	}
	return r, nil
}

// Resolve finds the controller registered under key.
func (r *Registry) Resolve(key string) (*Entry, bool) {
	e, ok := r.entries[key]
	return e, ok
}

// List returns every entry sorted by view key.
func (r *Registry) List() []*Entry {
	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
