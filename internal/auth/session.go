// ABOUTME: Session manager that validates bearer credentials and issues token pairs
// ABOUTME: Every successful validation re-issues a fresh pair (rolling refresh)

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/2389/viewgate/internal/revocation"
	"github.com/2389/viewgate/internal/store"
)

// Session errors
var (
	ErrSessionRevoked     = fmt.Errorf("%w: session revoked", ErrUnauthenticated)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid username or password", ErrUnauthenticated)

	ErrRevocationUnavailable = errors.New("session revocation not configured")
)

// dummyHash keeps the bcrypt comparison time constant when a user does not exist.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Session is the identity derived from a verified access token.
type Session struct {
	UserID    string
	SessionID string
	Roles     []string
}

// HasAnyRole reports whether the session holds at least one of roles.
func (s *Session) HasAnyRole(roles []string) bool {
	if s == nil {
		return false
	}
	for _, r := range roles {
		if slices.Contains(s.Roles, r) {
			return true
		}
	}
	return false
}

// TokenPair is issued on login and re-issued on every authenticated call.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	ExpiresAt        time.Time // access token expiry
	RefreshExpiresAt time.Time
}

// WriteHeaders sets the refresh response headers from the pair.
func (p *TokenPair) WriteHeaders(h http.Header) {
	if p == nil {
		return
	}
	h.Set(HeaderAccessToken, p.AccessToken)
	h.Set(HeaderRefreshToken, p.RefreshToken)
	h.Set(HeaderTokenExpiresAt, p.ExpiresAt.UTC().Format(time.RFC3339))
}

// Credentials are the raw login inputs.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserStore looks up users for password login.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*store.User, error)
}

// SessionManager authenticates requests and mints token pairs.
type SessionManager struct {
	tokens  *TokenService
	users   UserStore
	revoked *revocation.Cache
	logger  *slog.Logger
}

// NewSessionManager creates a session manager. users may be nil when password
// login is not offered; revoked may be nil to disable logout.
func NewSessionManager(tokens *TokenService, users UserStore, revoked *revocation.Cache, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		tokens:  tokens,
		users:   users,
		revoked: revoked,
		logger:  logger.With("component", "sessions"),
	}
}

// RequireSession extracts the bearer credential from headers, verifies it and
// returns the session together with a freshly issued token pair.
func (m *SessionManager) RequireSession(ctx context.Context, headers http.Header) (*Session, *TokenPair, error) {
	token, err := extractBearerToken(headers.Get(HeaderAuthorization))
	if err != nil {
		return nil, nil, err
	}

	claims, err := m.tokens.VerifyAccessToken(token)
	if err != nil {
		return nil, nil, err
	}

	session := sessionFromClaims(claims)
	if m.isRevoked(session.SessionID) {
		return nil, nil, ErrSessionRevoked
	}

	pair, err := m.issue(session)
	if err != nil {
		return nil, nil, err
	}
	return session, pair, nil
}

// CreateSession starts a new session for the user and returns its first pair.
func (m *SessionManager) CreateSession(userID string, roles []string) (*Session, *TokenPair, error) {
	session := &Session{
		UserID:    userID,
		SessionID: uuid.New().String(),
		Roles:     append([]string(nil), roles...),
	}
	pair, err := m.issue(session)
	if err != nil {
		return nil, nil, err
	}
	m.logger.Info("session created", "user_id", userID, "session_id", session.SessionID)
	return session, pair, nil
}

// AuthenticateUser checks a username/password against the user store and
// starts a new session on success.
func (m *SessionManager) AuthenticateUser(ctx context.Context, creds Credentials) (*Session, *TokenPair, error) {
	if m.users == nil {
		return nil, nil, errors.New("password login is not configured")
	}
	if creds.Username == "" || creds.Password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	user, err := m.users.GetUserByUsername(ctx, creds.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(creds.Password))
			m.logger.Warn("login failed", "reason", "unknown user")
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("looking up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		m.logger.Warn("login failed", "reason", "bad password", "user_id", user.ID)
		return nil, nil, ErrInvalidCredentials
	}

	return m.CreateSession(user.ID, user.Roles)
}

// Refresh exchanges a refresh token for a new pair bound to the same session.
func (m *SessionManager) Refresh(ctx context.Context, refreshToken string) (*Session, *TokenPair, error) {
	claims, err := m.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, nil, err
	}
	session := sessionFromClaims(claims)
	if m.isRevoked(session.SessionID) {
		return nil, nil, ErrSessionRevoked
	}
	pair, err := m.issue(session)
	if err != nil {
		return nil, nil, err
	}
	return session, pair, nil
}

// Revoke rejects every token of the session until the longest token it could
// have been issued would have expired anyway. It fails when no revocation
// can be recorded, in which case the session's tokens stay valid.
func (m *SessionManager) Revoke(sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if m.revoked == nil {
		return ErrRevocationUnavailable
	}
	if err := m.revoked.Revoke(sessionID); err != nil {
		m.logger.Error("failed to revoke session", "session_id", sessionID, "error", err)
		return fmt.Errorf("revoking session: %w", err)
	}
	m.logger.Info("session revoked", "session_id", sessionID)
	return nil
}

func (m *SessionManager) isRevoked(sessionID string) bool {
	return m.revoked != nil && m.revoked.IsRevoked(sessionID)
}

func (m *SessionManager) issue(s *Session) (*TokenPair, error) {
	c := Claims{Subject: s.UserID, SessionID: s.SessionID, Roles: s.Roles}

	access, err := m.tokens.SignAccessToken(c)
	if err != nil {
		return nil, err
	}
	refresh, err := m.tokens.SignRefreshToken(c)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access.Token,
		RefreshToken:     refresh.Token,
		ExpiresAt:        access.ExpiresAt,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}

func sessionFromClaims(c *Claims) *Session {
	return &Session{
		UserID:    c.Subject,
		SessionID: c.SessionID,
		Roles:     append([]string(nil), c.Roles...),
	}
}
