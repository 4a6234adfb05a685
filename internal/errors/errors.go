// Package errors provides standardized domain errors with codes for the Inkleaf bookstore API.
//
// Usage:
//
//	// In services - return typed errors
//	if len(urls) == 0 {
//	    return errors.NoLinksFound("no download links for record")
//	}
//
//	// At the API boundary, api.RegisterErrorHandler maps the error's
//	// Code to the HTTP status, so handlers just return the error:
//	if err != nil {
//	    return nil, err
//	}
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
	CodeSourceTimeout     Code = "SOURCE_TIMEOUT"
	CodeSourceUnavailable Code = "SOURCE_UNAVAILABLE"
	CodeNoLinksFound      Code = "NO_LINKS_FOUND"
	CodeDownloadFailed    Code = "DOWNLOAD_FAILED"
	CodeRetryExhausted    Code = "RETRY_EXHAUSTED"
	CodeValidation        Code = "VALIDATION"
	CodeNotFound          Code = "NOT_FOUND"
	CodeInternal          Code = "INTERNAL"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeSourceTimeout:
		return http.StatusGatewayTimeout
	case CodeSourceUnavailable:
		return http.StatusBadGateway
	case CodeNoLinksFound, CodeNotFound:
		return http.StatusNotFound
	case CodeDownloadFailed, CodeRetryExhausted:
		return http.StatusBadGateway
	case CodeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
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
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrSourceTimeout     = &Error{Code: CodeSourceTimeout, Message: "source timed out"}
	ErrSourceUnavailable = &Error{Code: CodeSourceUnavailable, Message: "source unavailable"}
	ErrNoLinksFound      = &Error{Code: CodeNoLinksFound, Message: "no download links found"}
	ErrDownloadFailed    = &Error{Code: CodeDownloadFailed, Message: "download failed"}
	ErrRetryExhausted    = &Error{Code: CodeRetryExhausted, Message: "retry attempts exhausted"}
	ErrValidation        = &Error{Code: CodeValidation, Message: "validation error"}
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "not found"}
	ErrInternal          = &Error{Code: CodeInternal, Message: "internal error"}
)

// Constructor functions for creating errors with custom messages.

// SourceTimeout creates a source timeout error.
func SourceTimeout(msg string) *Error {
	return &Error{Code: CodeSourceTimeout, Message: msg}
}

// SourceTimeoutf creates a source timeout error with formatted message.
func SourceTimeoutf(format string, args ...any) *Error {
	return &Error{Code: CodeSourceTimeout, Message: fmt.Sprintf(format, args...)}
}

// SourceUnavailable creates a source unavailable error.
func SourceUnavailable(msg string) *Error {
	return &Error{Code: CodeSourceUnavailable, Message: msg}
}

// SourceUnavailablef creates a source unavailable error with formatted message.
func SourceUnavailablef(format string, args ...any) *Error {
	return &Error{Code: CodeSourceUnavailable, Message: fmt.Sprintf(format, args...)}
}

// NoLinksFound creates a no links found error.
func NoLinksFound(msg string) *Error {
	return &Error{Code: CodeNoLinksFound, Message: msg}
}

// DownloadFailed creates a download failed error.
func DownloadFailed(msg string) *Error {
	return &Error{Code: CodeDownloadFailed, Message: msg}
}

// DownloadFailedf creates a download failed error with formatted message.
func DownloadFailedf(format string, args ...any) *Error {
	return &Error{Code: CodeDownloadFailed, Message: fmt.Sprintf(format, args...)}
}

// RetryExhausted creates a retry exhausted error.
func RetryExhausted(msg string) *Error {
	return &Error{Code: CodeRetryExhausted, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}
