package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for map operations.
var (
	// ErrInvalidDimension indicates a map created with dimension < 1.
	ErrInvalidDimension = errors.New("dynamo: map dimension must be positive")

	// ErrDimensionMismatch indicates a vector or matrix whose size differs
	// from the map dimension.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and map")

	// ErrInvalidOrder indicates a negative composition count.
	ErrInvalidOrder = errors.New("dynamo: order must be non-negative")

	// ErrNoForward indicates a map created without a forward function.
	ErrNoForward = errors.New("dynamo: forward map is required")

	// ErrNoBackward indicates a backward iteration on a map without an inverse.
	ErrNoBackward = errors.New("dynamo: map has no backward function")

	// ErrNoJacobian indicates a request for the exact Jacobian of a map
	// that has none attached.
	ErrNoJacobian = errors.New("dynamo: map has no exact Jacobian")

	// ErrParameterBounds indicates a setting outside its valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrUnknownParam indicates a parameter name the map does not expose.
	ErrUnknownParam = errors.New("dynamo: unknown parameter")

	// ErrNoConvergence indicates Newton iteration hit its iteration cap.
	ErrNoConvergence = errors.New("dynamo: fixed-point search did not converge")

	// ErrSingularJacobian indicates DT^n - I could not be inverted.
	ErrSingularJacobian = errors.New("dynamo: singular Jacobian in fixed-point search")
)

// Op identifies the operation in which a user callback failed.
type Op string

const (
	OpForward          Op = "forward"
	OpBackward         Op = "backward"
	OpJacobian         Op = "jacobian"
	OpFiniteDifference Op = "finite-difference"
)

// StepError reports the first failing callback of a composed operation.
// Step is the zero-based composition index at which it failed.
type StepError struct {
	Op      Op
	Step    int
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("dynamo: %s failed at step %d: %v", e.Op, e.Step, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
