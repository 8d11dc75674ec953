package api

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/playlistapp/playlist-server/internal/errors"
)

// APIError is a custom error type that implements huma.StatusError.
// It renders the same {"Error": "..."} body as the chi handlers.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Message string `json:"Error" doc:"Human-readable error message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// RegisterErrorHandler configures huma to use domain errors.
// Call this after creating the huma.API but before registering routes.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		for _, err := range errs {
			var domainErr *domainerrors.Error
			if errors.As(err, &domainErr) {
				return &APIError{status: domainErr.HTTPStatus(), Message: domainErr.Message}
			}
		}

		code := statusToCode(status)
		if code == "" {
			return &APIError{status: status, Message: message}
		}
		return &APIError{status: status, Message: code.Message()}
	}
}

// statusToCode maps HTTP status codes to our domain error codes.
func statusToCode(status int) domainerrors.Code {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domainerrors.CodeBadRequest
	case http.StatusUnauthorized:
		return domainerrors.CodeUnauthorized
	case http.StatusForbidden:
		return domainerrors.CodeForbidden
	case http.StatusNotFound:
		return domainerrors.CodeNotFound
	case http.StatusMethodNotAllowed:
		return domainerrors.CodeNotAllowed
	case http.StatusNotAcceptable:
		return domainerrors.CodeNotAcceptable
	case http.StatusInternalServerError:
		return domainerrors.CodeInternal
	default:
		return ""
	}
}
