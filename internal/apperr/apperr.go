// Package apperr defines the error taxonomy shared by the storefront client
// components. Every failure surfaced to a caller matches exactly one of the
// kind sentinels through errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

// Kind sentinels.
var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrSessionExpired   = errors.New("session expired")
	ErrUnavailable      = errors.New("service unavailable")
	ErrValidationFailed = errors.New("validation failed")
	ErrConflict         = errors.New("conflict")
	ErrCannotDeleteSelf = errors.New("cannot delete self")
	ErrNotFound         = errors.New("not found")
)

// Component-level errors. Each wraps the kind it belongs to.
var (
	ErrTokenIssuanceFailed    = fmt.Errorf("token issuance failed: %w", ErrUnauthenticated)
	ErrCatalogUnavailable     = fmt.Errorf("catalog unavailable: %w", ErrUnavailable)
	ErrIncompleteShippingInfo = fmt.Errorf("please fill in complete shipping information: %w", ErrValidationFailed)
	ErrEmptyCart              = fmt.Errorf("cart is empty: %w", ErrValidationFailed)
	ErrInvalidTransition      = fmt.Errorf("status transition not allowed: %w", ErrValidationFailed)
	ErrNotConfirmed           = fmt.Errorf("action not confirmed: %w", ErrValidationFailed)
)

// Error is a failure reported by the backend. It matches its Kind through
// errors.Is and keeps the server's message for display.
type Error struct {
	Kind    error
	Status  int
	Message string
	Op      string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Op == "" {
		return msg
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return fmt.Sprintf("%s: %s (status %d)", e.Op, msg, e.Status)
}

func (e *Error) Unwrap() error { return e.Kind }

// Message returns the text to show a user for err: the server's message when
// one was carried, otherwise fallback.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		return fallback
	}
	if err != nil && isKind(err) {
		return err.Error()
	}
	return fallback
}

// isKind reports whether err is one of the taxonomy errors (possibly wrapped).
func isKind(err error) bool {
	for _, k := range []error{
		ErrUnauthenticated, ErrSessionExpired, ErrUnavailable, ErrValidationFailed,
		ErrConflict, ErrCannotDeleteSelf, ErrNotFound,
	} {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}
