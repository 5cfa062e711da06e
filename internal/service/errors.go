package service

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers map them to HTTP statuses with errors.Is.
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrForbidden   = errors.New("forbidden")
	ErrUnavailable = errors.New("server configuration error")
)

// Error is a caller-facing failure. Its message is safe to return in the response body.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

// NewError builds a caller-facing error of the given kind
func NewError(kind error, msg string) error {
	return &Error{kind: kind, msg: msg}
}

func newError(kind error, format string, args ...interface{}) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func validationError(format string, args ...interface{}) error {
	return newError(ErrValidation, format, args...)
}

func notFound(entity string) error {
	return newError(ErrNotFound, "%s not found", entity)
}

func conflict(format string, args ...interface{}) error {
	return newError(ErrConflict, format, args...)
}

func isKind(err, kind error) bool {
	return errors.Is(err, kind)
}
