package dynamo

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Jacobian computes the derivative of the order-fold forward composition
// at x0 into J:
//
//	J_n(x0) = J(T^{n-1}(x0)) · ... · J(T(x0)) · J(x0)
//
// Each local Jacobian premultiplies the running product. Order 0 yields the
// identity. The first failing callback aborts the walk with a [*StepError];
// J is left untouched in that case.
func (m *Map[P]) Jacobian(order int, x0 mat.Vector, J *mat.Dense) error {
	if order < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidOrder, order)
	}
	if err := m.checkVec(x0); err != nil {
		return err
	}
	if err := m.prepareMatrix(J); err != nil {
		return err
	}

	m.xa.CopyVec(x0)
	setIdentity(m.jb)

	for i := 0; i < order; i++ {
		if m.exactJac {
			err := m.jac(m.xa, m.ja, m.params)
			m.notify(EvalJacobian, err)
			if err != nil {
				return &StepError{Op: OpJacobian, Step: i, Wrapped: err}
			}
			err = m.fw(m.xa, m.xb, m.params)
			m.notify(EvalForward, err)
			if err != nil {
				return &StepError{Op: OpForward, Step: i, Wrapped: err}
			}
		} else if err := m.approxJacobian(m.xa, m.ja); err != nil {
			// approxJacobian leaves T(xa) in xb
			return &StepError{Op: OpFiniteDifference, Step: i, Wrapped: err}
		}
		m.xa, m.xb = m.xb, m.xa

		m.jc.Mul(m.ja, m.jb)
		m.jb, m.jc = m.jc, m.jb
	}

	J.Copy(m.jb)
	return nil
}

// FiniteDifferenceJacobian evaluates the forward-difference approximation
// of the one-step Jacobian at x0, even when an exact Jacobian is attached.
func (m *Map[P]) FiniteDifferenceJacobian(x0 mat.Vector, J *mat.Dense) error {
	if err := m.checkVec(x0); err != nil {
		return err
	}
	if err := m.prepareMatrix(J); err != nil {
		return err
	}
	m.xa.CopyVec(x0)
	if err := m.approxJacobian(m.xa, m.ja); err != nil {
		return &StepError{Op: OpFiniteDifference, Step: 0, Wrapped: err}
	}
	J.Copy(m.ja)
	return nil
}

// approxJacobian fills J column by column with (T(x + h e_j) - T(x)) / h.
// x is perturbed in place and always restored before returning. On success
// xb holds T(x); xc is clobbered.
func (m *Map[P]) approxJacobian(x *mat.VecDense, J *mat.Dense) error {
	err := m.fw(x, m.xb, m.params)
	m.notify(EvalForward, err)
	if err != nil {
		return err
	}

	for j := 0; j < m.dim; j++ {
		xj := x.AtVec(j)
		x.SetVec(j, xj+m.dx)
		err := m.fw(x, m.xc, m.params)
		x.SetVec(j, xj)
		m.notify(EvalForward, err)
		if err != nil {
			return fmt.Errorf("perturbing coordinate %d: %w", j, err)
		}
		for i := 0; i < m.dim; i++ {
			J.Set(i, j, (m.xc.AtVec(i)-m.xb.AtVec(i))/m.dx)
		}
	}
	return nil
}

func setIdentity(d *mat.Dense) {
	d.Zero()
	r, _ := d.Dims()
	for i := 0; i < r; i++ {
		d.Set(i, i, 1)
	}
}
