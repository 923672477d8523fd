package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an error carrying the HTTP status and the message returned to the
// client in the error envelope.
type Error struct {
	Status  int
	Message string
	Errors  []string
	// Err is the underlying cause. It is logged but never sent to clients.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap attaches a cause to the error.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

func New(status int, message string, details ...string) *Error {
	return &Error{Status: status, Message: message, Errors: details}
}

func BadRequest(message string, details ...string) *Error {
	return New(http.StatusBadRequest, message, details...)
}

func Unauthorized(message string) *Error {
	if message == "" {
		message = "Unauthorized request"
	}
	return New(http.StatusUnauthorized, message)
}

func Forbidden(message string) *Error {
	return New(http.StatusForbidden, message)
}

func NotFound(resource string) *Error {
	return New(http.StatusNotFound, resource+" not found")
}

func Conflict(message string) *Error {
	return New(http.StatusConflict, message)
}

func TooManyRequests() *Error {
	return New(http.StatusTooManyRequests, "Too many requests")
}

func Internal(message string, cause error) *Error {
	if message == "" {
		message = "internal server error"
	}
	return &Error{Status: http.StatusInternalServerError, Message: message, Err: cause}
}

// As converts any error into an *Error. Errors that are not already API errors
// become a 500.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Internal("", err)
}
