package dynamo

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// FixedPoint searches for x* with T^order(x*) = x* by Newton iteration on
// F(x) = T^order(x) - x, starting from x0. It returns the number of Newton
// updates applied. settings may be nil for [DefaultNewtonSettings].
//
// Maps that reduce coordinates modulo a period make F discontinuous; seed
// such searches away from the wrap boundary.
func (m *Map[P]) FixedPoint(order int, x0 mat.Vector, xFixed *mat.VecDense, settings *NewtonSettings) (int, error) {
	s := DefaultNewtonSettings()
	if settings != nil {
		s = *settings
	}
	if order < 1 {
		return 0, fmt.Errorf("%w: fixed point needs order >= 1, got %d", ErrInvalidOrder, order)
	}
	if !(s.Tol > 0) || s.MaxIter < 1 {
		return 0, fmt.Errorf("%w: newton tol %g, max iter %d", ErrParameterBounds, s.Tol, s.MaxIter)
	}
	if err := m.checkVec(x0); err != nil {
		return 0, err
	}
	if err := m.prepareVec(xFixed); err != nil {
		return 0, err
	}

	x := mat.NewVecDense(m.dim, nil)
	x.CopyVec(x0)
	tx := mat.NewVecDense(m.dim, nil)
	residual := mat.NewVecDense(m.dim, nil)
	step := mat.NewVecDense(m.dim, nil)
	dF := mat.NewDense(m.dim, m.dim, nil)
	eye := mat.NewDense(m.dim, m.dim, nil)
	setIdentity(eye)

	for it := 0; it <= s.MaxIter; it++ {
		if err := m.Forward(order, x, tx); err != nil {
			return it, err
		}
		residual.SubVec(tx, x)
		if mat.Norm(residual, 2) < s.Tol {
			xFixed.CopyVec(x)
			return it, nil
		}
		if it == s.MaxIter {
			break
		}

		if err := m.Jacobian(order, x, dF); err != nil {
			return it, err
		}
		dF.Sub(dF, eye)
		if err := step.SolveVec(dF, residual); err != nil {
			return it, fmt.Errorf("%w: %v", ErrSingularJacobian, err)
		}
		x.SubVec(x, step)
		if mat.Norm(step, 2) < s.Tol {
			xFixed.CopyVec(x)
			return it + 1, nil
		}
	}
	return s.MaxIter, fmt.Errorf("%w after %d iterations", ErrNoConvergence, s.MaxIter)
}
