// ABOUTME: Tests for the notes view
// ABOUTME: Covers set/get/list/delete, limits and the suspended-session hook

package builtins

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/viewgate/internal/auth"
)

func TestNotes_Lifecycle(t *testing.T) {
	h := newHarness(t)
	a := h.login(t, "alice")

	status, _ := h.call(t, a, "notes", "note_set", map[string]string{"key": "b", "value": "two"})
	require.Equal(t, http.StatusOK, status)
	h.call(t, a, "notes", "note_set", map[string]string{"key": "a", "value": "one"})

	status, body := h.call(t, a, "notes", "note_get", map[string]string{"key": "b"})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"result":{"key":"b","value":"two","found":true},"viewData":{"notes":{"a":"one","b":"two"}}}`, body)

	_, body = h.call(t, a, "notes", "note_list", nil)
	assert.JSONEq(t, `{"result":["a","b"],"viewData":{"notes":{"a":"one","b":"two"}}}`, body)

	_, body = h.call(t, a, "notes", "note_delete", map[string]string{"key": "a"})
	assert.JSONEq(t, `{"result":true,"viewData":{"notes":{"b":"two"}}}`, body)

	_, body = h.call(t, a, "notes", "note_get", map[string]string{"key": "a"})
	assert.JSONEq(t, `{"result":{"key":"a","value":"","found":false},"viewData":{"notes":{"b":"two"}}}`, body)
}

func TestNotes_EmptyKeyIsBadRequest(t *testing.T) {
	h := newHarness(t)
	a := h.login(t, "alice")

	status, _ := h.call(t, a, "notes", "note_set", map[string]string{"value": "x"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestNotes_Limit(t *testing.T) {
	h := newHarness(t)
	a := h.login(t, "alice")

	for i := 0; i < MaxNotes; i++ {
		status, _ := h.call(t, a, "notes", "note_set", map[string]string{"key": fmt.Sprintf("k%03d", i), "value": "v"})
		require.Equal(t, http.StatusOK, status)
	}
	status, _ := h.call(t, a, "notes", "note_set", map[string]string{"key": "overflow", "value": "v"})
	assert.Equal(t, http.StatusBadRequest, status)

	// Overwriting an existing key is still allowed.
	status, _ = h.call(t, a, "notes", "note_set", map[string]string{"key": "k000", "value": "w"})
	assert.Equal(t, http.StatusOK, status)
}

func TestNotes_SuspendedSessionRefused(t *testing.T) {
	h := newHarness(t)
	s := h.login(t, "mallory", "suspended")

	status, body := h.call(t, s, "notes", "note_list", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.JSONEq(t, `{"error":"Forbidden."}`, body)
	assert.Equal(t, 0, h.store.LoadCalls())
}

func TestNotes_NullMapRepaired(t *testing.T) {
	h := newHarness(t)
	session, pair, err := h.sessions.CreateSession("alice", nil)
	require.NoError(t, err)
	require.NoError(t, h.store.SaveViewData(context.Background(), session.SessionID, "notes", []byte(`{"notes":null}`)))

	hdr := make(http.Header)
	hdr.Set(auth.HeaderAuthorization, "Bearer "+pair.AccessToken)
	status, body := h.call(t, hdr, "notes", "note_set", map[string]string{"key": "k", "value": "v"})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"result":true,"viewData":{"notes":{"k":"v"}}}`, body)
}
