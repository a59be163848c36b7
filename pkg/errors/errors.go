package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies an AppError independently of its message
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindUpstreamData Kind = "upstream_data"
	KindPersistence  Kind = "persistence"
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindInternal     Kind = "internal"
)

// AppError represents an application error with HTTP status code
type AppError struct {
	Code    int    `json:"code"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	cause   error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *AppError) Unwrap() error {
	return e.cause
}

// Is matches two AppErrors by kind so that errors.Is(err, ErrNotFound) works
// for any not-found error regardless of message.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Common errors
var (
	ErrNotFound       = &AppError{Code: http.StatusNotFound, Kind: KindNotFound, Message: "Resource not found"}
	ErrUpstreamData   = &AppError{Code: http.StatusBadGateway, Kind: KindUpstreamData, Message: "Upstream data unavailable"}
	ErrPersistence    = &AppError{Code: http.StatusInternalServerError, Kind: KindPersistence, Message: "Persistence failure"}
	ErrValidation     = &AppError{Code: http.StatusBadRequest, Kind: KindValidation, Message: "Validation failed"}
	ErrUnauthorized   = &AppError{Code: http.StatusUnauthorized, Kind: KindUnauthorized, Message: "Unauthorized"}
	ErrInternalServer = &AppError{Code: http.StatusInternalServerError, Kind: KindInternal, Message: "Internal server error"}
)

// New creates a new AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    KindInternal,
		Message: message,
	}
}

// NotFound creates a not-found error
func NotFound(format string, args ...interface{}) *AppError {
	return &AppError{Code: http.StatusNotFound, Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error
func Validation(format string, args ...interface{}) *AppError {
	return &AppError{Code: http.StatusBadRequest, Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// UpstreamData wraps a failure of an external metrics source
func UpstreamData(cause error, format string, args ...interface{}) *AppError {
	return &AppError{Code: http.StatusBadGateway, Kind: KindUpstreamData, Message: fmt.Sprintf(format, args...), cause: cause}
}

// Persistence wraps a failed store write or read
func Persistence(cause error, format string, args ...interface{}) *AppError {
	return &AppError{Code: http.StatusInternalServerError, Kind: KindPersistence, Message: fmt.Sprintf(format, args...), cause: cause}
}

// WithDetails adds details to an error
func WithDetails(err *AppError, details string) *AppError {
	return &AppError{
		Code:    err.Code,
		Kind:    err.Kind,
		Message: err.Message,
		Details: details,
		cause:   err.cause,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// KindOf returns the kind of the first AppError in the chain
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// GetStatusCode returns the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}
