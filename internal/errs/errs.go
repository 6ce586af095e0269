// Package errs carries coded application errors from the dashboard services
// up to the HTTP, MCP and CLI surfaces.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a failure for the caller.
type Code string

const (
	// InvalidArgument is a validation failure: nothing was mutated.
	InvalidArgument Code = "invalid_argument"
	// NotFound is reserved for lookups that must exist (sessions, routes).
	// Deleting or toggling a missing entity is not an error.
	NotFound           Code = "not_found"
	FailedPrecondition Code = "failed_precondition"
	Unauthenticated    Code = "unauthenticated"
	Unavailable        Code = "unavailable"
	ResourceExhausted  Code = "resource_exhausted"
	Internal           Code = "internal"
)

// Error is a coded application error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a coded error with message.
func New(code Code, message string) error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a coded error with message and cause.
func Wrap(code Code, message string, cause error) error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// Invalidf is shorthand for an InvalidArgument error with a formatted message.
func Invalidf(format string, args ...any) error {
	return New(InvalidArgument, fmt.Sprintf(format, args...))
}

// CodeOf returns the error code, defaulting to internal.
func CodeOf(err error) Code {
	if err == nil {
		return Internal
	}
	var coded *Error
	if errors.As(err, &coded) {
		if coded.Code == "" {
			return Internal
		}
		return coded.Code
	}
	return Internal
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// MessageOf returns a user-facing error message.
// Untyped errors collapse to "internal error" so storage paths and upstream
// response bodies never reach a page or an API response.
func MessageOf(err error) string {
	if err == nil {
		return string(Internal)
	}
	var coded *Error
	if errors.As(err, &coded) && coded.Message != "" {
		return coded.Message
	}
	return "internal error"
}

// HTTPStatus maps error code to HTTP status.
func HTTPStatus(code Code) int {
	switch code {
	case InvalidArgument:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case FailedPrecondition:
		return http.StatusPreconditionRequired
	case Unavailable:
		return http.StatusServiceUnavailable
	case ResourceExhausted:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Detail renders err with its cause chain for logs. Never show it to users.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	var coded *Error
	if errors.As(err, &coded) && coded.Err != nil {
		if coded.Message == "" {
			return coded.Err.Error()
		}
		return coded.Message + ": " + coded.Err.Error()
	}
	return err.Error()
}
