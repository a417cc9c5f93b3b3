// ABOUTME: Notes view provides per-session key-value storage.
// ABOUTME: Refuses suspended sessions in its authorize hook.

package builtins

import (
	"context"
	"fmt"
	"sort"

	"github.com/2389/viewgate/internal/rpc"
	"github.com/2389/viewgate/internal/view"
)

// MaxNotes bounds the number of notes a session can keep.
const MaxNotes = 100

// NotesState is the notes view's data.
type NotesState struct {
	Notes map[string]string `json:"notes"`
}

type noteSetInput struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type noteKeyInput struct {
	Key string `json:"key"`
}

// NoteResult is returned by note_get.
type NoteResult struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Found bool   `json:"found"`
}

// Notes creates the notes view.
func Notes() view.Controller {
	d := view.Define[NotesState]("notes").
		Describe("Per-session **notes**, stored as key/value pairs.").
		Init(func(ctx context.Context, base *view.BaseContext) (*NotesState, error) {
			return &NotesState{Notes: map[string]string{}}, nil
		}).
		OnAuthorize(func(ctx context.Context, base *view.BaseContext) error {
			if base.Session.HasAnyRole([]string{"suspended"}) {
				return rpc.ErrForbidden
			}
			return nil
		}).
		OnBeforeCall(func(ctx context.Context, s *NotesState, vc *view.Context) error {
			// Stored data may predate the map or carry null.
			if s != nil && s.Notes == nil {
				s.Notes = map[string]string{}
			}
			return nil
		})

	view.Handle(d, "note_set", func(ctx context.Context, in noteSetInput, s *NotesState, vc *view.Context) (bool, error) {
		if in.Key == "" {
			return false, fmt.Errorf("%w: key is required", rpc.ErrBadRequest)
		}
		if _, exists := s.Notes[in.Key]; !exists && len(s.Notes) >= MaxNotes {
			return false, fmt.Errorf("%w: note limit of %d reached", rpc.ErrBadRequest, MaxNotes)
		}
		s.Notes[in.Key] = in.Value
		return true, nil
	}, view.WithDescription("Stores `value` under `key`."))

	view.Handle(d, "note_get", func(ctx context.Context, in noteKeyInput, s *NotesState, vc *view.Context) (NoteResult, error) {
		value, ok := s.Notes[in.Key]
		return NoteResult{Key: in.Key, Value: value, Found: ok}, nil
	}, view.WithDescription("Returns the note stored under `key`."))

	view.Handle(d, "note_list", func(ctx context.Context, in emptyInput, s *NotesState, vc *view.Context) ([]string, error) {
		keys := make([]string, 0, len(s.Notes))
		for k := range s.Notes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys, nil
	}, view.WithDescription("Lists note keys."))

	view.Handle(d, "note_delete", func(ctx context.Context, in noteKeyInput, s *NotesState, vc *view.Context) (bool, error) {
		_, existed := s.Notes[in.Key]
		delete(s.Notes, in.Key)
		return existed, nil
	}, view.WithDescription("Removes the note stored under `key`."))

	return d.Controller()
}
