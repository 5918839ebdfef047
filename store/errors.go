package store

import (
	"errors"
	"fmt"

	"github.com/tailored-agentic-units/tickstore/address"
)

// Validation errors are returned synchronously through the callback and the
// operation is never enqueued. ErrOutOfSpace and UnexpectedError arrive
// through the callback after a cycle has processed the operation.
var (
	ErrInvalidSlot       = errors.New("invalid slot number")
	ErrKeyTooLong        = errors.New("key string too long")
	ErrValueTooLong      = errors.New("value string too long")
	ErrOutOfSpace        = errors.New("out of space for hash collision")
	ErrUnexpectedFailure = errors.New("unexpected failure")
	ErrInvalidConfig     = errors.New("invalid config")
)

// UnexpectedError reports a medium failure other than an unavailable region.
// It matches both ErrUnexpectedFailure and its cause under errors.Is.
type UnexpectedError struct {
	Position address.Position
	Cause    error
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("unexpected failure at %s: %v", e.Position, e.Cause)
}

func (e *UnexpectedError) Unwrap() []error {
	return []error{ErrUnexpectedFailure, e.Cause}
}
