// ABOUTME: Tests for the counter view
// ABOUTME: Runs the increment scenario across two sessions and checks role gating

package builtins

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounter_Scenario(t *testing.T) {
	h := newHarness(t)
	a := h.login(t, "alice")
	b := h.login(t, "bob")

	status, body := h.call(t, a, "counter", "increment", map[string]int{"amount": 2})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"result":{"counter":2},"viewData":{"counter":2}}`, body)

	status, body = h.call(t, a, "counter", "increment", map[string]int{"amount": 3})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"result":{"counter":5},"viewData":{"counter":5}}`, body)

	status, body = h.call(t, b, "counter", "increment", map[string]int{"amount": 3})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"result":{"counter":3},"viewData":{"counter":3}}`, body)
}

func TestCounter_DefaultAmount(t *testing.T) {
	h := newHarness(t)
	a := h.login(t, "alice")

	_, body := h.call(t, a, "counter", "increment", nil)
	assert.JSONEq(t, `{"result":{"counter":1},"viewData":{"counter":1}}`, body)
}

func TestCounter_ExplicitZeroIsNoop(t *testing.T) {
	h := newHarness(t)
	a := h.login(t, "alice")

	h.call(t, a, "counter", "increment", map[string]int{"amount": 4})
	_, body := h.call(t, a, "counter", "increment", map[string]int{"amount": 0})
	assert.JSONEq(t, `{"result":{"counter":4},"viewData":{"counter":4}}`, body)
}

func TestCounter_ResetRequiresAdmin(t *testing.T) {
	h := newHarness(t)
	user := h.login(t, "alice", "user")
	admin := h.login(t, "root", "admin")

	status, body := h.call(t, user, "counter", "reset", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.JSONEq(t, `{"error":"Forbidden."}`, body)

	h.call(t, admin, "counter", "increment", map[string]int{"amount": 9})
	status, body = h.call(t, admin, "counter", "reset", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"result":{"counter":0},"viewData":{"counter":0}}`, body)
}

func TestCounter_DescribeIsAnonymous(t *testing.T) {
	h := newHarness(t)

	status, body := h.call(t, http.Header{}, "counter", "describe", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "counter")
	assert.Equal(t, 0, h.store.SaveCalls())
}
