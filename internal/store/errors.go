package store

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a store error with an HTTP status code.
type Error struct {
	Code    int    // HTTP status code
	Message string // User-facing message
	Err     error  // Underlying error (optional)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches store errors by code and message so wrapped sentinels compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code && t.Message == e.Message
}

// HTTPCode returns the HTTP status code associated with this error.
func (e *Error) HTTPCode() int { return e.Code }

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Err: err}
}

// Sentinel errors.
var (
	ErrNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "record not found",
	}

	ErrAlreadyExists = &Error{
		Code:    http.StatusConflict,
		Message: "record already exists",
	}

	ErrInvalidCursor = &Error{
		Code:    http.StatusBadRequest,
		Message: "invalid cursor",
	}

	ErrClosed = &Error{
		Code:    http.StatusServiceUnavailable,
		Message: "store closed",
	}
)

// ErrNoChange is returned from a Mutate callback to leave the record as it is.
var ErrNoChange = errors.New("no change")
