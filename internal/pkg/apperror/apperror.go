package apperror

import (
	"errors"
	"net/http"
)

// AppError is a custom error type that includes an HTTP status code and an optional internal error code.
type AppError struct {
	Code      int    // HTTP Status Code (e.g., 400, 404)
	Message   string // User-facing error message
	Err       error  // The underlying error, if any (not exposed to user)
	Transient bool   // Only meaningful for persistence failures: safe to retry
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with a status code and message.
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new AppError wrapping an existing error.
func Wrap(err error, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Validation reports malformed input. Never retried.
func Validation(message string) *AppError {
	return New(http.StatusBadRequest, message)
}

// NotFound reports a missing property, booking or other record.
func NotFound(message string) *AppError {
	return New(http.StatusNotFound, message)
}

// Conflict reports a write that lost against current state: taken dates or an illegal transition.
func Conflict(message string) *AppError {
	return New(http.StatusConflict, message)
}

// Forbidden reports a caller lacking the role an operation requires.
func Forbidden(message string) *AppError {
	return New(http.StatusForbidden, message)
}

// Persistence wraps a storage failure. Transient failures map to 503 so clients may try again.
func Persistence(err error, transient bool) *AppError {
	if transient {
		return &AppError{
			Code:      http.StatusServiceUnavailable,
			Message:   "storage temporarily unavailable, please retry",
			Err:       err,
			Transient: true,
		}
	}
	return &AppError{
		Code:    http.StatusInternalServerError,
		Message: "internal server error",
		Err:     err,
	}
}

func codeOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return 0
}

func IsValidation(err error) bool    { return codeOf(err) == http.StatusBadRequest }
func IsNotFound(err error) bool      { return codeOf(err) == http.StatusNotFound }
func IsConflict(err error) bool      { return codeOf(err) == http.StatusConflict }
func IsAuthorization(err error) bool { return codeOf(err) == http.StatusForbidden }

// IsPersistence reports whether err is a storage failure, transient or not.
func IsPersistence(err error) bool {
	code := codeOf(err)
	return code == http.StatusServiceUnavailable || code == http.StatusInternalServerError
}

// IsTransient reports whether err is a storage failure worth retrying.
func IsTransient(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Transient
}
