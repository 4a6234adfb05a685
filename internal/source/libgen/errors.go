package libgen

import (
	"errors"
	"fmt"
)

// Sentinel errors for libgen catalog operations.
var (
	ErrTimeout     = errors.New("libgen: request timed out")
	ErrUnavailable = errors.New("libgen: source unavailable")
	ErrBadPage     = errors.New("libgen: no result table in page")
)

// Error wraps an underlying error with operation and mirror context.
type Error struct {
	Op     string // Operation: "search", "fetch"
	Mirror string // If applicable
	Err    error
}

func (e *Error) Error() string {
	if e.Mirror != "" {
		return fmt.Sprintf("libgen %s [%s]: %v", e.Op, e.Mirror, e.Err)
	}
	return fmt.Sprintf("libgen %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrapError creates an Error with context.
func wrapError(op, mirror string, err error) error {
	return &Error{Op: op, Mirror: mirror, Err: err}
}

// UnavailableError reports that every eligible mirror failed or none was
// eligible to begin with.
type UnavailableError struct {
	Attempted int
}

func (e *UnavailableError) Error() string {
	if e.Attempted == 0 {
		return "libgen: source unavailable: no mirrors eligible (all cooling down)"
	}
	return fmt.Sprintf("libgen: source unavailable: all %d attempted mirrors failed or were empty", e.Attempted)
}

// Unwrap lets errors.Is(err, ErrUnavailable) match.
func (e *UnavailableError) Unwrap() error {
	return ErrUnavailable
}
