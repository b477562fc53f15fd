package service

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means an operation needing a current user got none.
	ErrUnauthenticated = errors.New("access unauthorized")

	// ErrDuplicateCredential means the username or email is already taken.
	ErrDuplicateCredential = errors.New("username or email already taken")

	ErrNotFound = errors.New("not found")

	// ErrSelfLike is returned when a user tries to like their own message.
	ErrSelfLike = errors.New("cannot like own message")

	// ErrReauthentication means the confirmation password did not match.
	ErrReauthentication = errors.New("re-authentication failed")

	ErrPasswordMismatch = errors.New("new password and confirmation do not match")

	// ErrForbidden is returned when the actor does not own the resource.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError reports a field that failed a service-level check.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}
