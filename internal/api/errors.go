package api

import (
	"errors"
	"fmt"
)

// balanceErrorText is the exact error string the backend returns when the
// account cannot fund a new session. Matched verbatim; the caller routes it
// to the paywall instead of a generic toast.
const balanceErrorText = "Reload your balance."

var (
	// ErrInsufficientBalance means a new session was refused for lack of
	// funds. Callers present the paywall, not an error message.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrUnauthorized means the bearer token was rejected even after one
	// forced refresh. Callers sign the user out.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrSessionGone means the backend no longer knows the session. The
	// sync engine surfaces it once and stops polling.
	ErrSessionGone = errors.New("session not found")

	// ErrEmptyMessage is raised client-side before any request is sent.
	ErrEmptyMessage = errors.New("message body is empty")
)

// Error is a non-2xx backend response that does not map to a sentinel.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend error: HTTP %d", e.Status)
	}
	return fmt.Sprintf("backend error: HTTP %d: %s", e.Status, e.Message)
}

// Transient reports whether the error is safe to swallow inside a polling
// loop. Auth failures and missing sessions are not: they will not heal on
// the next tick.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrSessionGone) {
		return false
	}
	var be *Error
	if errors.As(err, &be) {
		return be.Status >= 500
	}
	// Thrown transport errors (timeouts, resets) retry on the next tick.
	return true
}
