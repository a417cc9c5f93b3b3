// ABOUTME: HTTP middleware and helpers for bearer authentication on API endpoints
// ABOUTME: Extracts the bearer token from Authorization and adds the session to context

package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Header names used on the wire.
const (
	HeaderAuthorization  = "Authorization"
	HeaderAccessToken    = "X-Access-Token"
	HeaderRefreshToken   = "X-Refresh-Token"
	HeaderTokenExpiresAt = "X-Token-Expires-At"
)

// Credential errors
var (
	ErrMissingCredential   = fmt.Errorf("%w: missing authorization header", ErrUnauthenticated)
	ErrMalformedCredential = fmt.Errorf("%w: invalid authorization header format", ErrUnauthenticated)
)

// extractBearerToken extracts a bearer token from the Authorization header value.
func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingCredential
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", ErrMalformedCredential
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", ErrMalformedCredential
	}
	return token, nil
}

// HasCredential reports whether the headers carry any Authorization value.
func HasCredential(headers http.Header) bool {
	return headers.Get(HeaderAuthorization) != ""
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// HTTPMiddleware authenticates the request with the session manager, writes
// the refreshed token pair to the response headers and adds the Session to
// the request context.
func HTTPMiddleware(sessions *SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, pair, err := sessions.RequireSession(r.Context(), r.Header)
			if err != nil {
				sessions.logger.Warn("auth failure",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", err,
				)
				writeJSONError(w, http.StatusUnauthorized, "Unauthorized.")
				return
			}
			pair.WriteHeaders(w.Header())
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// RequireRoleHTTP creates an HTTP middleware that requires one of roles.
// Must be used after HTTPMiddleware.
func RequireRoleHTTP(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := SessionFromContext(r.Context())
			if session == nil {
				writeJSONError(w, http.StatusUnauthorized, "Unauthorized.")
				return
			}
			if !session.HasAnyRole(roles) {
				writeJSONError(w, http.StatusForbidden, "Forbidden.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
