package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// AppError is an error with the HTTP status and code it is reported under.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// WithError attaches the underlying cause. It is logged, never serialized.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, Field: field, Status: status}
}

// FieldError reports a bad query value as 400.
func FieldError(code, field, message string) *AppError {
	return NewAppError(code, field, message, http.StatusBadRequest)
}

func NotFoundError(code, message string) *AppError {
	return NewAppError(code, "", message, http.StatusNotFound)
}

func InternalError(message string) *AppError {
	return NewAppError("ERR_INTERNAL", "", message, http.StatusInternalServerError)
}

func InternalErrorf(format string, a ...interface{}) *AppError {
	return InternalError(fmt.Sprintf(format, a...))
}

// UnavailableError creates a 503 for features whose backing store is not
// configured.
func UnavailableError(message string) *AppError {
	return NewAppError("ERR_UNAVAILABLE", "", message, http.StatusServiceUnavailable)
}

// ComputationError wraps a failed regime computation. It is always a 500; a
// computation cut short by its deadline gets its own code.
func ComputationError(err error) *AppError {
	code := "ERR_INTERNAL"
	if errors.Is(err, context.DeadlineExceeded) {
		code = "ERR_TIMEOUT"
	}
	return NewAppError(code, "", "regime computation failed", http.StatusInternalServerError).WithError(err)
}
