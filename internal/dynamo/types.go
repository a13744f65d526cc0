package dynamo

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// State is a plain coordinate list, used where a vector has to cross a
// config file, a store or a terminal.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Vec copies the state into a new gonum vector.
func (s State) Vec() *mat.VecDense {
	if len(s) == 0 {
		return &mat.VecDense{}
	}
	return mat.NewVecDense(len(s), s.Clone())
}

// StateOf copies a gonum vector into a State.
func StateOf(v mat.Vector) State {
	s := make(State, v.Len())
	for i := range s {
		s[i] = v.AtVec(i)
	}
	return s
}

// TransitionFunc writes the image of x0 into x1. x1 always has the map
// dimension and never aliases x0. Implementations must not modify x0.
type TransitionFunc[P any] func(x0 mat.Vector, x1 *mat.VecDense, params P) error

// JacobianFunc writes the derivative of the forward map at x0 into J.
type JacobianFunc[P any] func(x0 mat.Vector, J *mat.Dense, params P) error

// Iterator is the part of a map an orbit needs.
type Iterator interface {
	Dim() int
	Forward(order int, x0 mat.Vector, x1 *mat.VecDense) error
	Backward(order int, x0 mat.Vector, x1 *mat.VecDense) error
}

// Configurable exposes named float parameters of a map.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// System is the type-erased view of a [Map], used by callers that pick
// a model by name.
type System interface {
	Iterator
	Configurable
	Jacobian(order int, x0 mat.Vector, J *mat.Dense) error
	FixedPoint(order int, x0 mat.Vector, xFixed *mat.VecDense, settings *NewtonSettings) (int, error)
	HasExactJacobian() bool
	UseExactJacobian(on bool) error
	SetFiniteDifferenceStep(h float64) error
	SetObserver(o Observer)
	// Spawn returns an independent copy with its own scratch buffers.
	Spawn() System
}

// EvalKind names the user callback an [Observer] is told about.
type EvalKind string

const (
	EvalForward  EvalKind = "forward"
	EvalBackward EvalKind = "backward"
	EvalJacobian EvalKind = "jacobian"
)

// Observer is notified after every call into a user-supplied transition
// or Jacobian function. It is shared by spawned copies, so it must be
// safe for concurrent use when those copies run in parallel.
type Observer interface {
	OnEval(kind EvalKind, err error)
}

// NewtonSettings controls [Map.FixedPoint].
type NewtonSettings struct {
	// Tol bounds both the residual |T^n(x) - x| and the Newton update.
	Tol     float64
	MaxIter int
}

// DefaultNewtonSettings returns Tol 1e-10 and MaxIter 50.
func DefaultNewtonSettings() NewtonSettings {
	return NewtonSettings{
		Tol:     1e-10,
		MaxIter: 50,
	}
}
