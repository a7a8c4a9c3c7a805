package maze

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfBounds        = errors.New("coordinate out of bounds")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrNoMatchingCell     = errors.New("no cell matches the required open wall")
	ErrInvalidDimensions  = errors.New("invalid maze dimensions")
	ErrBusy               = errors.New("another operation is running on this maze")
)

type OutOfBoundsError struct {
	At            Coordinate
	Width, Height int
}

// [OutOfBoundsError] implements [error]
func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("coordinate %s outside %dx%d grid", e.At, e.Width, e.Height)
}

func (e *OutOfBoundsError) Is(target error) bool {
	return target == ErrOutOfBounds
}

// InvariantViolation signals a logic bug, never a recoverable condition.
type InvariantViolation struct {
	message string
}

// [InvariantViolation] implements [error]
func (e InvariantViolation) Error() string {
	return "invariant violation: " + e.message
}

func (e InvariantViolation) Is(target error) bool {
	return target == ErrInvariantViolation
}

func violation(format string, args ...any) InvariantViolation {
	return InvariantViolation{fmt.Sprintf(format, args...)}
}
