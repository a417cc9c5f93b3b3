// ABOUTME: HS256 JWT signing and verification for access and refresh tokens
// ABOUTME: Tokens carry subject, session id, roles, expiry and a typ discriminator

package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrUnauthenticated is the umbrella for every credential or token failure.
// All other errors in this block wrap it.
var ErrUnauthenticated = errors.New("unauthenticated")

// Token errors
var (
	ErrInvalidToken     = fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	ErrMalformedToken   = fmt.Errorf("%w: malformed token", ErrUnauthenticated)
	ErrInvalidSignature = fmt.Errorf("%w: invalid token signature", ErrUnauthenticated)
	ErrInvalidIssuer    = fmt.Errorf("%w: invalid token issuer", ErrUnauthenticated)
	ErrInvalidAudience  = fmt.Errorf("%w: invalid token audience", ErrUnauthenticated)
	ErrExpired          = fmt.Errorf("%w: token expired", ErrUnauthenticated)
	ErrInvalidTokenType = fmt.Errorf("%w: invalid token type", ErrUnauthenticated)
	ErrMissingClaim     = fmt.Errorf("%w: missing required claim", ErrUnauthenticated)
)

// ErrWeakSecret is returned by NewTokenService when the signing secret is too short.
var ErrWeakSecret = errors.New("jwt secret must be at least 32 bytes")

const (
	// DefaultAccessTTL is used when TokenConfig.AccessTTL is zero.
	DefaultAccessTTL = 15 * time.Minute
	// DefaultRefreshTTL is used when TokenConfig.RefreshTTL is zero.
	DefaultRefreshTTL = 7 * 24 * time.Hour

	minSecretLength = 32
)

// TokenType discriminates access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the verified content of a token.
type Claims struct {
	Subject   string
	SessionID string
	Roles     []string
	ExpiresAt time.Time
	Type      TokenType
}

// SignedToken is a compact serialized token and the instant it stops being valid.
type SignedToken struct {
	Token     string
	ExpiresAt time.Time
}

// tokenClaims is the JSON payload of the JWT.
type tokenClaims struct {
	jwt.RegisteredClaims
	SessionID string    `json:"sid"`
	Roles     []string  `json:"roles"`
	Type      TokenType `json:"typ"`
}

// TokenConfig configures a TokenService.
type TokenConfig struct {
	Secret     []byte
	Issuer     string // optional; checked on verify when set
	Audience   string // optional; checked on verify when set
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time // defaults to time.Now
}

// TokenService signs and verifies HS256 tokens.
type TokenService struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService creates a token service. The secret must be at least 32 bytes.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.Secret) < minSecretLength {
		return nil, ErrWeakSecret
	}
	s := &TokenService{
		secret:     append([]byte(nil), cfg.Secret...),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        cfg.Now,
	}
	if s.accessTTL <= 0 {
		s.accessTTL = DefaultAccessTTL
	}
	if s.refreshTTL <= 0 {
		s.refreshTTL = DefaultRefreshTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// RefreshTTL reports the lifetime given to refresh tokens.
func (s *TokenService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// SignAccessToken signs a short-lived access token for the claims.
// Type and ExpiresAt on the input are ignored.
func (s *TokenService) SignAccessToken(c Claims) (SignedToken, error) {
	return s.sign(c, TokenTypeAccess, s.accessTTL)
}

// SignRefreshToken signs a long-lived refresh token for the claims.
func (s *TokenService) SignRefreshToken(c Claims) (SignedToken, error) {
	return s.sign(c, TokenTypeRefresh, s.refreshTTL)
}

// VerifyAccessToken verifies the token and requires it to be an access token.
func (s *TokenService) VerifyAccessToken(token string) (*Claims, error) {
	return s.verify(token, TokenTypeAccess)
}

// VerifyRefreshToken verifies the token and requires it to be a refresh token.
func (s *TokenService) VerifyRefreshToken(token string) (*Claims, error) {
	return s.verify(token, TokenTypeRefresh)
}

func (s *TokenService) sign(c Claims, typ TokenType, ttl time.Duration) (SignedToken, error) {
	if c.Subject == "" {
		return SignedToken{}, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	if c.SessionID == "" {
		return SignedToken{}, fmt.Errorf("%w: sid", ErrMissingClaim)
	}

	now := s.now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.Subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.New().String(),
		},
		SessionID: c.SessionID,
		Roles:     append([]string(nil), c.Roles...),
		Type:      typ,
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return SignedToken{}, fmt.Errorf("signing %s token: %w", typ, err)
	}
	return SignedToken{Token: signed, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func (s *TokenService) verify(tokenString string, want TokenType) (*Claims, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return nil, ErrMalformedToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}
	parser := jwt.NewParser(opts...)

	// The MAC is checked over the raw segments before anything is decoded, so a
	// tampered payload reports a signature failure rather than a decode failure.
	sig, err := parser.DecodeSegment(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if err := jwt.SigningMethodHS256.Verify(parts[0]+"."+parts[1], sig, s.secret); err != nil {
		return nil, ErrInvalidSignature
	}

	var claims tokenClaims
	_, err = parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	if claims.Type != want {
		return nil, ErrInvalidTokenType
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	if claims.SessionID == "" {
		return nil, fmt.Errorf("%w: sid", ErrMissingClaim)
	}

	return &Claims{
		Subject:   claims.Subject,
		SessionID: claims.SessionID,
		Roles:     claims.Roles,
		ExpiresAt: claims.ExpiresAt.Time,
		Type:      claims.Type,
	}, nil
}

// classifyParseError maps jwt library errors onto this package's sentinels.
// Issuer and audience are checked before expiry.
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformedToken
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrInvalidIssuer
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrInvalidAudience
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return fmt.Errorf("%w: exp", ErrMissingClaim)
	default:
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
}
