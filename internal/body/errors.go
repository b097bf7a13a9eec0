package body

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidHandle indicates a handle that was never issued.
	ErrInvalidHandle = errors.New("body: invalid handle")

	// ErrStaleHandle indicates a handle whose body has been destroyed.
	ErrStaleHandle = errors.New("body: stale handle (body destroyed)")

	// ErrInvalidProxy indicates a shape proxy that does not belong to the body.
	ErrInvalidProxy = errors.New("body: invalid shape proxy")

	// ErrInvalidMass indicates a non-positive or non-finite mass for a dynamic body.
	ErrInvalidMass = errors.New("body: mass must be positive and finite")

	// ErrNoShape indicates a shape argument of nil.
	ErrNoShape = errors.New("body: nil shape")
)

// HandleError wraps a handle failure with the operation that hit it.
type HandleError struct {
	Op      string
	Handle  Handle
	Wrapped error
}

func (e *HandleError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Handle, e.Wrapped)
}

func (e *HandleError) Unwrap() error {
	return e.Wrapped
}
