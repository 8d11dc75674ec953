// Package errors provides the domain errors returned by services and
// rendered by the HTTP layer.
//
// Every Code carries a fixed public message; clients only ever see that
// message. Context for logs goes into Details or the wrapped cause.
//
//	// In services
//	if !playlist.OwnedBy(p.Subject) {
//	    return nil, errors.Forbiddenf("playlist %d owned by another subject", id)
//	}
//
//	// In handlers
//	if errors.Is(err, errors.ErrForbidden) { ... }
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeBadRequest     Code = "BAD_REQUEST"
	CodeDuplicateTrack Code = "BAD_REQUEST_NO_DUPLICATES"
	CodeUnauthorized   Code = "UNAUTHORIZED"
	CodeForbidden      Code = "FORBIDDEN"
	CodeNotFound       Code = "NOT_FOUND"
	CodeNotAllowed     Code = "NOT_ALLOWED"
	CodeNotAcceptable  Code = "NOT_ACCEPTABLE"
	CodeInternal       Code = "INTERNAL_SERVER_ERROR"
)

var publicMessages = map[Code]string{
	CodeBadRequest:     "The request object is missing one or more of the required attributes.",
	CodeDuplicateTrack: "Duplicate tracks are not allowed.",
	CodeUnauthorized:   "The request is missing a valid auth token.",
	CodeForbidden:      "The user is not authorized to access the requested resource.",
	CodeNotFound:       "A resource with the requested id could not be found.",
	CodeNotAllowed:     "The request method is not allowed for the endpoint.",
	CodeNotAcceptable:  "The server only produces responses that conform to an 'application/json' value provided in the request 'Accept' header.",
	CodeInternal:       "An unexpected server error occurred.",
}

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeBadRequest, CodeDuplicateTrack:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeNotAllowed:
		return http.StatusMethodNotAllowed
	case CodeNotAcceptable:
		return http.StatusNotAcceptable
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing message for the code.
// Unknown codes get the internal error message.
func (c Code) Message() string {
	if msg, ok := publicMessages[c]; ok {
		return msg
	}
	return publicMessages[CodeInternal]
}

// Error is a domain error with a code, its public message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Details != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Details)
	}
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, cause: err}
}

// New creates an error for code with its public message.
func New(code Code) *Error {
	return &Error{Code: code, Message: code.Message()}
}

// Newf creates an error for code; the formatted text is kept as details.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: code.Message(), Details: fmt.Sprintf(format, args...)}
}

// Sentinel errors for use with errors.Is().
var (
	ErrBadRequest     = New(CodeBadRequest)
	ErrDuplicateTrack = New(CodeDuplicateTrack)
	ErrUnauthorized   = New(CodeUnauthorized)
	ErrForbidden      = New(CodeForbidden)
	ErrNotFound       = New(CodeNotFound)
)

// BadRequest creates a bad request error; details name the failing fields.
func BadRequest(details any) *Error {
	return ErrBadRequest.WithDetails(details)
}

// NotFoundf creates a not found error with formatted details.
func NotFoundf(format string, args ...any) *Error {
	return Newf(CodeNotFound, format, args...)
}

// Forbiddenf creates a forbidden error with formatted details.
func Forbiddenf(format string, args ...any) *Error {
	return Newf(CodeForbidden, format, args...)
}

// DuplicateTrackf creates a duplicate track error with formatted details.
func DuplicateTrackf(format string, args ...any) *Error {
	return Newf(CodeDuplicateTrack, format, args...)
}
