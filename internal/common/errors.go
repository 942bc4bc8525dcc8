package common

import (
	"net/http"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// NewValidationError reports missing or malformed request fields. These block
// submission before any network call is made.
func NewValidationError(message string, details any) *AppError {
	return &AppError{Code: "VALIDATION", Message: message, HTTPStatus: http.StatusUnprocessableEntity, Details: details}
}

// NewUpstreamError reports a collaborator service failure.
func NewUpstreamError(message string, err error) *AppError {
	return &AppError{Code: "UPSTREAM_FAILED", Message: message, HTTPStatus: http.StatusBadGateway, Err: err}
}

// WriteError renders an AppError as the canonical JSON error response.
func WriteError(w http.ResponseWriter, e *AppError) {
	if e == nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	status := e.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	JSONError(w, status, e.Code, e.Message, e.Details)
}
