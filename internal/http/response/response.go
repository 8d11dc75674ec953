// Package response provides standardized HTTP response formatting and error handling utilities.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	domainerrors "github.com/playlistapp/playlist-server/internal/errors"
	"github.com/playlistapp/playlist-server/internal/store"
)

// ErrorBody is the only error shape clients see.
type ErrorBody struct {
	Error string `json:"Error"`
}

// JSON writes data as the JSON response body with the given status code.
func JSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		if logger != nil {
			logger.Error("Failed to encode JSON response", "error", err)
		}
	}
}

// Success writes a successful JSON response (200 OK).
func Success(w http.ResponseWriter, data any, logger *slog.Logger) {
	JSON(w, http.StatusOK, data, logger)
}

// Created writes a created response (201 Created).
func Created(w http.ResponseWriter, data any, logger *slog.Logger) {
	JSON(w, http.StatusCreated, data, logger)
}

// NoContent writes a no content response (204 No Content).
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes the fixed public message for code with its HTTP status.
func Error(w http.ResponseWriter, code domainerrors.Code, logger *slog.Logger) {
	JSON(w, code.HTTPStatus(), ErrorBody{Error: code.Message()}, logger)
}

// BadRequest writes a 400 Bad Request response.
func BadRequest(w http.ResponseWriter, logger *slog.Logger) {
	Error(w, domainerrors.CodeBadRequest, logger)
}

// Unauthorized writes a 401 Unauthorized response.
func Unauthorized(w http.ResponseWriter, logger *slog.Logger) {
	Error(w, domainerrors.CodeUnauthorized, logger)
}

// NotFound writes a 404 Not Found response.
func NotFound(w http.ResponseWriter, logger *slog.Logger) {
	Error(w, domainerrors.CodeNotFound, logger)
}

// NotAcceptable writes a 406 Not Acceptable response.
func NotAcceptable(w http.ResponseWriter, logger *slog.Logger) {
	Error(w, domainerrors.CodeNotAcceptable, logger)
}

// MethodNotAllowed writes a 405 response advertising the allowed methods.
func MethodNotAllowed(w http.ResponseWriter, allowed []string, logger *slog.Logger) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	Error(w, domainerrors.CodeNotAllowed, logger)
}

// TooManyRequests writes a 429 response.
func TooManyRequests(w http.ResponseWriter, logger *slog.Logger) {
	JSON(w, http.StatusTooManyRequests, ErrorBody{Error: http.StatusText(http.StatusTooManyRequests)}, logger)
}

// InternalError writes a 500 Internal Server Error response.
func InternalError(w http.ResponseWriter, logger *slog.Logger) {
	Error(w, domainerrors.CodeInternal, logger)
}

// HandleError writes an appropriate HTTP response based on the error type.
// Domain errors carry their own status; store errors that name a missing
// record or a bad cursor are mapped; anything else is logged and becomes 500.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		if domainErr.Code == domainerrors.CodeInternal && logger != nil {
			logger.Error("Internal error", "error", err)
		}
		Error(w, domainErr.Code, logger)
		return
	}

	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		switch storeErr.HTTPCode() {
		case http.StatusNotFound:
			NotFound(w, logger)
			return
		case http.StatusBadRequest:
			BadRequest(w, logger)
			return
		}
	}

	if logger != nil {
		logger.Error("Unhandled error", "error", err)
	}
	InternalError(w, logger)
}
