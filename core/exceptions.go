package core

import (
	"errors"
	"net/http"
)

// AppError is an error with a client-facing message and the HTTP status it maps to.
type AppError struct {
	Message string
	Code    int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidationError builds a 400 error
func NewValidationError(msg string, cause error) *AppError {
	return &AppError{Message: msg, Code: http.StatusBadRequest, Err: cause}
}

// NewNotFoundError builds a 404 error
func NewNotFoundError(msg string, cause error) *AppError {
	return &AppError{Message: msg, Code: http.StatusNotFound, Err: cause}
}

// StatusOf returns the HTTP status for err and the message safe to show the client.
// Errors that are not AppErrors are internal.
func StatusOf(err error) (int, string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code, appErr.Message
	}
	return http.StatusInternalServerError, "Internal server error"
}
