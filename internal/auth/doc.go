// Package auth provides token-based sessions for viewgate.
//
// # Tokens
//
// TokenService signs and verifies HS256 JWTs. Every token carries the user
// id (sub), the session id (sid), the session's roles, an expiry and a typ
// discriminator. Access tokens are short-lived; refresh tokens share the same
// claims with typ "refresh" and a longer lifetime. An access token never
// verifies as a refresh token and vice versa.
//
// Verification checks, in order: segment shape, signature, issuer and
// audience (when configured), expiry, then the token type. Every failure
// wraps ErrUnauthenticated so callers can test for it with errors.Is.
//
// # Sessions
//
// SessionManager derives a Session from the bearer credential of a request.
// Every successful validation issues a fresh token pair bound to the same
// user, session and roles (rolling refresh). Transports return the pair in
// the X-Access-Token, X-Refresh-Token and X-Token-Expires-At headers, or as
// gRPC header metadata.
//
// Password login goes through AuthenticateUser, which compares bcrypt hashes
// and spends the same time on unknown users. Logout revokes the session id;
// tokens of a revoked session are refused until they would have expired.
//
// # HTTP
//
//	mux.Handle("/admin/", auth.HTTPMiddleware(sessions)(
//	    auth.RequireRoleHTTP("admin")(adminHandler),
//	))
//
// # gRPC
//
// HeaderFromMetadata lifts the authorization metadata into an http.Header so
// gRPC handlers reuse RequireSession. UnaryInterceptor logs calls rejected as
// unauthenticated.
package auth
