package dynamo

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// DefaultFiniteDifferenceStep is the step used by the approximate Jacobian.
const DefaultFiniteDifferenceStep = 1e-6

// Map is a discrete dynamical map of fixed dimension. params is held by
// reference and handed unchanged to every callback.
type Map[P any] struct {
	dim      int
	fw       TransitionFunc[P]
	bw       TransitionFunc[P]
	jac      JacobianFunc[P]
	params   P
	exactJac bool
	dx       float64
	observer Observer

	// scratch, reused by every call
	xa, xb, xc *mat.VecDense
	ja, jb, jc *mat.Dense
}

// NewMap allocates a map of dimension dim. bw may be nil, in which case
// backward iteration of positive order fails with [ErrNoBackward].
func NewMap[P any](dim int, fw, bw TransitionFunc[P], params P) (*Map[P], error) {
	if dim < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDimension, dim)
	}
	if fw == nil {
		return nil, ErrNoForward
	}
	m := &Map[P]{
		dim:    dim,
		fw:     fw,
		bw:     bw,
		params: params,
		dx:     DefaultFiniteDifferenceStep,
	}
	m.alloc()
	return m, nil
}

func (m *Map[P]) alloc() {
	m.xa = mat.NewVecDense(m.dim, nil)
	m.xb = mat.NewVecDense(m.dim, nil)
	m.xc = mat.NewVecDense(m.dim, nil)
	m.ja = mat.NewDense(m.dim, m.dim, nil)
	m.jb = mat.NewDense(m.dim, m.dim, nil)
	m.jc = mat.NewDense(m.dim, m.dim, nil)
}

// SetJacobian attaches an exact Jacobian of the forward map, replacing the
// finite-difference fallback. Its correctness is not checked.
func (m *Map[P]) SetJacobian(jac JacobianFunc[P]) {
	m.jac = jac
	m.exactJac = jac != nil
}

func (m *Map[P]) HasExactJacobian() bool { return m.exactJac }

// UseExactJacobian switches between the attached Jacobian and finite
// differences. Turning it on requires a Jacobian from [Map.SetJacobian].
func (m *Map[P]) UseExactJacobian(on bool) error {
	if on && m.jac == nil {
		return ErrNoJacobian
	}
	m.exactJac = on
	return nil
}

func (m *Map[P]) Dim() int { return m.dim }

func (m *Map[P]) Params() P { return m.params }

func (m *Map[P]) FiniteDifferenceStep() float64 { return m.dx }

func (m *Map[P]) SetFiniteDifferenceStep(h float64) error {
	if !(h > 0) {
		return fmt.Errorf("%w: finite-difference step %g", ErrParameterBounds, h)
	}
	m.dx = h
	return nil
}

func (m *Map[P]) SetObserver(o Observer) { m.observer = o }

// GetParams exposes the parameters when P implements [Configurable].
func (m *Map[P]) GetParams() map[string]float64 {
	if c, ok := any(m.params).(Configurable); ok {
		return c.GetParams()
	}
	return map[string]float64{}
}

func (m *Map[P]) SetParam(name string, value float64) error {
	if c, ok := any(m.params).(Configurable); ok {
		return c.SetParam(name, value)
	}
	return fmt.Errorf("%w: %s", ErrUnknownParam, name)
}

// Clone returns a map sharing the callbacks, parameters and observer but
// owning fresh scratch buffers.
func (m *Map[P]) Clone() *Map[P] {
	c := &Map[P]{
		dim:      m.dim,
		fw:       m.fw,
		bw:       m.bw,
		jac:      m.jac,
		params:   m.params,
		exactJac: m.exactJac,
		dx:       m.dx,
		observer: m.observer,
	}
	c.alloc()
	return c
}

func (m *Map[P]) Spawn() System { return m.Clone() }

// Forward applies the forward map order times to x0 and stores the result
// in x1. x1 may be x0 or an empty vector. On error x1 is left untouched.
func (m *Map[P]) Forward(order int, x0 mat.Vector, x1 *mat.VecDense) error {
	return m.iterate(OpForward, EvalForward, m.fw, order, x0, x1)
}

// Backward is Forward with the backward map. Nothing checks that the
// backward map actually inverts the forward one.
func (m *Map[P]) Backward(order int, x0 mat.Vector, x1 *mat.VecDense) error {
	return m.iterate(OpBackward, EvalBackward, m.bw, order, x0, x1)
}

func (m *Map[P]) iterate(op Op, kind EvalKind, f TransitionFunc[P], order int, x0 mat.Vector, x1 *mat.VecDense) error {
	if order < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidOrder, order)
	}
	if order > 0 && f == nil {
		return ErrNoBackward
	}
	if err := m.checkVec(x0); err != nil {
		return err
	}
	if err := m.prepareVec(x1); err != nil {
		return err
	}

	m.xa.CopyVec(x0)
	for i := 0; i < order; i++ {
		err := f(m.xa, m.xb, m.params)
		m.notify(kind, err)
		if err != nil {
			return &StepError{Op: op, Step: i, Wrapped: err}
		}
		m.xa, m.xb = m.xb, m.xa
	}
	x1.CopyVec(m.xa)
	return nil
}

func (m *Map[P]) notify(kind EvalKind, err error) {
	if m.observer != nil {
		m.observer.OnEval(kind, err)
	}
}

func (m *Map[P]) checkVec(v mat.Vector) error {
	if v == nil || v.Len() != m.dim {
		n := 0
		if v != nil {
			n = v.Len()
		}
		return fmt.Errorf("%w: vector of length %d, map dimension %d", ErrDimensionMismatch, n, m.dim)
	}
	return nil
}

// prepareVec sizes an empty output vector and checks a non-empty one.
func (m *Map[P]) prepareVec(v *mat.VecDense) error {
	if v == nil {
		return fmt.Errorf("%w: nil output vector", ErrDimensionMismatch)
	}
	if v.IsEmpty() {
		v.ReuseAsVec(m.dim)
		return nil
	}
	return m.checkVec(v)
}

func (m *Map[P]) prepareMatrix(J *mat.Dense) error {
	if J == nil {
		return fmt.Errorf("%w: nil output matrix", ErrDimensionMismatch)
	}
	if J.IsEmpty() {
		J.ReuseAs(m.dim, m.dim)
		return nil
	}
	if r, c := J.Dims(); r != m.dim || c != m.dim {
		return fmt.Errorf("%w: matrix %dx%d, map dimension %d", ErrDimensionMismatch, r, c, m.dim)
	}
	return nil
}

var _ System = (*Map[struct{}])(nil)
