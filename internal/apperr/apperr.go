// Package apperr defines the coarse error kinds returned by the domain services.
// Each kind is a sentinel; concrete errors carry a user-facing message and wrap the
// kind together with an optional cause, so errors.Is works against both.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks bad user input such as a malformed email or short password.
	ErrValidation = errors.New("validation failed")
	// ErrAuth marks bad credentials or an invalid or expired token.
	ErrAuth = errors.New("authentication failed")
	// ErrPersistence marks constraint violations and storage failures.
	ErrPersistence = errors.New("persistence failure")
	// ErrForbidden marks ownership or role mismatches.
	ErrForbidden = errors.New("not authorized")
	// ErrNotFound marks a missing entity.
	ErrNotFound = errors.New("not found")
	// ErrOperationFailed marks a write that failed for reasons the caller cannot fix.
	ErrOperationFailed = errors.New("operation failed")
	// ErrConflict marks a write rejected because the record already exists.
	ErrConflict = errors.New("already exists")

	// ErrCannotDeleteLastAdmin is returned when removing or demoting the only admin.
	ErrCannotDeleteLastAdmin = &Error{kind: ErrForbidden, msg: "cannot delete the last admin user"}
)

// Error is a domain error with a message safe to show to end users.
type Error struct {
	kind  error
	msg   string
	cause error
}

func (e *Error) Error() string {
	return e.msg
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.cause}
}

// Kind returns the sentinel describing the error category.
func (e *Error) Kind() error {
	return e.kind
}

func newError(kind, cause error, format string, args ...any) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), cause: cause}
}

// Validation builds an ErrValidation error.
func Validation(format string, args ...any) error {
	return newError(ErrValidation, nil, format, args...)
}

// Auth builds an ErrAuth error.
func Auth(format string, args ...any) error {
	return newError(ErrAuth, nil, format, args...)
}

// Forbidden builds an ErrForbidden error.
func Forbidden(format string, args ...any) error {
	return newError(ErrForbidden, nil, format, args...)
}

// NotFound builds an ErrNotFound error.
func NotFound(format string, args ...any) error {
	return newError(ErrNotFound, nil, format, args...)
}

// Conflict wraps a uniqueness violation. It is also an ErrPersistence error.
func Conflict(cause error, format string, args ...any) error {
	return &Error{kind: ErrConflict, msg: fmt.Sprintf(format, args...), cause: errors.Join(ErrPersistence, cause)}
}

// Persistence wraps a storage failure behind a flat message.
func Persistence(cause error, format string, args ...any) error {
	return newError(ErrPersistence, cause, format, args...)
}

// OperationFailed wraps a failed write behind a flat message.
func OperationFailed(cause error, format string, args ...any) error {
	return newError(ErrOperationFailed, cause, format, args...)
}

// Message returns the user-facing message for err, or a generic one when err is not
// a domain error.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.msg
	}
	return "an unexpected error occurred"
}
