// ABOUTME: HTTP API handlers for login, token refresh, logout and admin view-data purge
// ABOUTME: Token responses carry the pair in the body and in the refresh headers

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/2389/viewgate/internal/auth"
)

// maxAuthBodyBytes limits login and refresh request bodies.
const maxAuthBodyBytes = 64 << 10

// RefreshRequest is the JSON request body for POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse is the JSON response for login and refresh.
type TokenResponse struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	SessionID        string    `json:"session_id"`
	UserID           string    `json:"user_id"`
	Roles            []string  `json:"roles"`
}

func newTokenResponse(s *auth.Session, p *auth.TokenPair) TokenResponse {
	roles := s.Roles
	if roles == nil {
		roles = []string{}
	}
	return TokenResponse{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		ExpiresAt:        p.ExpiresAt,
		RefreshExpiresAt: p.RefreshExpiresAt,
		SessionID:        s.SessionID,
		UserID:           s.UserID,
		Roles:            roles,
	}
}

// handleLogin handles POST /auth/login.
// It checks a username and password and starts a new session.
func (g *Gateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if err := decodeJSONBody(w, r, &creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	session, pair, err := g.sessions.AuthenticateUser(r.Context(), creds)
	if err != nil {
		g.writeAuthError(w, r, err)
		return
	}

	g.logger.Info("user logged in", "user_id", session.UserID, "session_id", session.SessionID)
	g.writeTokens(w, session, pair)
}

// handleRefresh handles POST /auth/refresh.
// It exchanges a refresh token for a new pair bound to the same session.
func (g *Gateway) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeJSONBody(w, r, &req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	session, pair, err := g.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		g.writeAuthError(w, r, err)
		return
	}
	g.writeTokens(w, session, pair)
}

// handleLogout handles POST /auth/logout.
// It revokes the caller's session; every token of that session stops working.
func (g *Gateway) handleLogout(w http.ResponseWriter, r *http.Request) {
	session := auth.MustSessionFromContext(r.Context())
	if err := g.sessions.Revoke(session.SessionID); err != nil {
		g.logger.Error("logout refused", "session_id", session.SessionID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "Logout unavailable.")
		return
	}

	// The middleware already attached a fresh pair; it is dead now.
	for _, h := range []string{auth.HeaderAccessToken, auth.HeaderRefreshToken, auth.HeaderTokenExpiresAt} {
		w.Header().Del(h)
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePurgeViewData handles DELETE /admin/sessions/{session}/views/{view}.
// The view lock is held while deleting so an in-flight call cannot write the
// old state back.
func (g *Gateway) handlePurgeViewData(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session")
	viewKey := r.PathValue("view")

	release, err := g.locks.Acquire(r.Context(), sessionID, viewKey)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "View is busy.")
		return
	}
	defer release()

	if err := g.store.DeleteViewData(r.Context(), sessionID, viewKey); err != nil {
		g.logger.Error("failed to purge view data", "session_id", sessionID, "view", viewKey, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	admin := auth.MustSessionFromContext(r.Context())
	g.logger.Info("view data purged", "session_id", sessionID, "view", viewKey, "by", admin.UserID)
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, auth.ErrUnauthenticated) {
		g.logger.Debug("authentication rejected", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusUnauthorized, "Unauthorized.")
		return
	}
	g.logger.Error("authentication failed", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "Internal server error.")
}

func (g *Gateway) writeTokens(w http.ResponseWriter, s *auth.Session, p *auth.TokenPair) {
	p.WriteHeaders(w.Header())
	writeJSON(w, http.StatusOK, newTokenResponse(s, p))
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAuthBodyBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
