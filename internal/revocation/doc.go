// Package revocation tracks revoked session ids for a bounded time window.
//
// A session id is revoked on logout and stays revoked for the lifetime of the
// longest token that could have been issued for it. After that, every token
// for the session has expired on its own and the entry is dropped.
//
// The cache is size-limited, but a live revocation is never dropped to make
// room. When every slot holds a live revocation, Revoke returns ErrFull and
// the caller has to refuse the logout.
package revocation
