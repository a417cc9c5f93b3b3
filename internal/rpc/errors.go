// ABOUTME: Error taxonomy of the RPC pipeline and its mapping to HTTP statuses
// ABOUTME: Wire messages never carry internal details

package rpc

import (
	"errors"
	"net/http"

	"github.com/2389/viewgate/internal/auth"
	"github.com/2389/viewgate/internal/view"
	"github.com/2389/viewgate/internal/viewlock"
)

// Pipeline errors
var (
	ErrBadRequest         = errors.New("bad request")
	ErrViewNotFound       = errors.New("view controller not found")
	ErrCallableNotFound   = errors.New("callable method not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInitializerMissing = errors.New("view data initializer missing")
)

// Wire messages
const (
	msgViewNotFound       = "ViewController not found"
	msgCallableNotFound   = "Callable method not found"
	msgForbidden          = "Forbidden."
	msgUnauthorized       = "Unauthorized."
	msgBusy               = "View is busy."
	msgInitializerMissing = "View data initializer missing."
	msgInternal           = "Internal server error."
)

// StatusFor maps a pipeline error to its HTTP status and client message.
func StatusFor(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, view.ErrInvalidArgs):
		return http.StatusBadRequest, "bad request: invalid arguments"
	case errors.Is(err, ErrViewNotFound):
		return http.StatusNotFound, msgViewNotFound
	case errors.Is(err, ErrCallableNotFound):
		return http.StatusNotFound, msgCallableNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, msgForbidden
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, msgUnauthorized
	case errors.Is(err, viewlock.ErrWaitTimeout):
		return http.StatusServiceUnavailable, msgBusy
	case errors.Is(err, ErrInitializerMissing):
		return http.StatusInternalServerError, msgInitializerMissing
	default:
		return http.StatusInternalServerError, msgInternal
	}
}
