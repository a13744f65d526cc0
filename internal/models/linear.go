package models

import (
	"fmt"

	"github.com/san-kum/dynmap/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Linear is the map x' = A x for a square matrix A.
type Linear struct {
	A   *mat.Dense
	inv *mat.Dense
}

// NewLinear copies a. The backward map is available only when a is
// invertible.
func NewLinear(a mat.Matrix) (*Linear, error) {
	r, c := a.Dims()
	if r != c {
		return nil, fmt.Errorf("%w: linear map needs a square matrix, got %dx%d", dynamo.ErrDimensionMismatch, r, c)
	}
	l := &Linear{A: mat.DenseCopyOf(a)}
	var inv mat.Dense
	if err := inv.Inverse(l.A); err == nil {
		l.inv = &inv
	}
	return l, nil
}

func (l *Linear) Map() (*dynamo.Map[*Linear], error) {
	n, _ := l.A.Dims()
	var bw dynamo.TransitionFunc[*Linear]
	if l.inv != nil {
		bw = linearBackward
	}
	m, err := dynamo.NewMap(n, linearForward, bw, l)
	if err != nil {
		return nil, err
	}
	m.SetJacobian(linearJacobian)
	return m, nil
}

func linearForward(x0 mat.Vector, x1 *mat.VecDense, l *Linear) error {
	x1.MulVec(l.A, x0)
	return nil
}

func linearBackward(x0 mat.Vector, x1 *mat.VecDense, l *Linear) error {
	x1.MulVec(l.inv, x0)
	return nil
}

func linearJacobian(_ mat.Vector, J *mat.Dense, l *Linear) error {
	J.Copy(l.A)
	return nil
}
