// Package simerr defines the error taxonomy shared by the loader and the
// simulation core.
package simerr

import (
	"errors"
	"fmt"
)

// ErrMalformedInput is wrapped by every error caused by inconsistent or
// invalid input data: bad counts, unknown street references, non-positive
// lengths and the like. Check for it with errors.Is.
var ErrMalformedInput = errors.New("malformed input")

// Malformed returns an error wrapping ErrMalformedInput.
func Malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedInput, fmt.Sprintf(format, args...))
}

// InvariantViolation is a fatal internal error: the core reached a state that
// well-formed input can never produce. The run that raised it must be aborted.
type InvariantViolation struct {
	VehicleID int
	Tick      int
	Reason    string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation: vehicle %d at t=%d: %s", e.VehicleID, e.Tick, e.Reason)
}
