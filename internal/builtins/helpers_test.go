// ABOUTME: Shared fixture running built-in views through the RPC pipeline
// ABOUTME: Uses the in-memory store and real token signing

package builtins

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/2389/viewgate/internal/auth"
	"github.com/2389/viewgate/internal/rpc"
	"github.com/2389/viewgate/internal/store"
	"github.com/2389/viewgate/internal/view"
)

type harness struct {
	pipeline *rpc.Pipeline
	sessions *auth.SessionManager
	store    *store.MockStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tokens, err := auth.NewTokenService(auth.TokenConfig{Secret: []byte("test-secret-key-for-jwt-signing-0123456789")})
	require.NoError(t, err)
	registry, err := view.NewRegistry(All()...)
	require.NoError(t, err)

	h := &harness{
		sessions: auth.NewSessionManager(tokens, nil, nil, nil),
		store:    store.NewMockStore(),
	}
	h.pipeline = rpc.New(rpc.Config{Registry: registry, Sessions: h.sessions, Store: h.store})
	return h
}

func (h *harness) login(t *testing.T, userID string, roles ...string) http.Header {
	t.Helper()
	_, pair, err := h.sessions.CreateSession(userID, roles)
	require.NoError(t, err)
	hdr := make(http.Header)
	hdr.Set(auth.HeaderAuthorization, "Bearer "+pair.AccessToken)
	return hdr
}

// call returns the status and the JSON-encoded body.
func (h *harness) call(t *testing.T, hdr http.Header, viewKey, method string, args any) (int, string) {
	t.Helper()
	body, err := json.Marshal(map[string]any{"method": method, "args": args})
	require.NoError(t, err)
	resp := h.pipeline.Handle(context.Background(), &rpc.Request{ViewKey: viewKey, Body: body, Header: hdr}, nil)
	out, err := json.Marshal(resp.Body)
	require.NoError(t, err)
	return resp.Status, string(out)
}
