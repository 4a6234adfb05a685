package dbooks

import (
	"errors"
	"fmt"
)

// Sentinel errors for dbooks API operations.
var (
	ErrTimeout     = errors.New("dbooks: request timed out")
	ErrUnavailable = errors.New("dbooks: service unavailable")
	ErrBadRequest  = errors.New("dbooks: bad request")
	ErrNoLinks     = errors.New("dbooks: no usable download links")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op  string // Operation: "search", "resolve"
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("dbooks %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrapError creates an Error with context.
func wrapError(op string, err error) error {
	return &Error{Op: op, Err: err}
}
