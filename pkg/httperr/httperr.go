package httperr

import "errors"

// The error kinds mirror the failure taxonomy of the registry core:
// validation rejects malformed input before any mutation, not-found and
// forbidden guard lookups and actor identity, invalid-state guards the
// proposal lifecycle, and persistence wraps store failures.

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func NewValidation(msg string) error { return &ValidationError{msg: msg} }

func IsValidation(err error) bool {
	var target *ValidationError
	ok := errors.As(err, &target)
	return ok
}

type NotFoundError struct {
	msg string
}

func (e *NotFoundError) Error() string { return e.msg }

func NewNotFound(msg string) error { return &NotFoundError{msg: msg} }

func IsNotFound(err error) bool {
	var target *NotFoundError
	ok := errors.As(err, &target)
	return ok
}

type ForbiddenError struct {
	msg string
}

func (e *ForbiddenError) Error() string { return e.msg }

func NewForbidden(msg string) error { return &ForbiddenError{msg: msg} }

func IsForbidden(err error) bool {
	var target *ForbiddenError
	ok := errors.As(err, &target)
	return ok
}

type InvalidStateError struct {
	msg string
}

func (e *InvalidStateError) Error() string { return e.msg }

func NewInvalidState(msg string) error { return &InvalidStateError{msg: msg} }

func IsInvalidState(err error) bool {
	var target *InvalidStateError
	ok := errors.As(err, &target)
	return ok
}

// PersistenceError keeps the underlying store error reachable via Unwrap
// while presenting a stable code to callers.
type PersistenceError struct {
	msg   string
	cause error
}

func (e *PersistenceError) Error() string { return e.msg }

func (e *PersistenceError) Unwrap() error { return e.cause }

func NewPersistence(msg string, cause error) error {
	return &PersistenceError{msg: msg, cause: cause}
}

func IsPersistence(err error) bool {
	var target *PersistenceError
	ok := errors.As(err, &target)
	return ok
}
