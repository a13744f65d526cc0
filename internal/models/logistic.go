package models

import (
	"fmt"

	"github.com/san-kum/dynmap/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Logistic is the one-dimensional map x' = R x (1 - x). It has no inverse.
type Logistic struct {
	R float64
}

func NewLogistic() *Logistic {
	return &Logistic{R: 3.7}
}

func (l *Logistic) Map() (*dynamo.Map[*Logistic], error) {
	m, err := dynamo.NewMap(1, logisticForward, nil, l)
	if err != nil {
		return nil, err
	}
	m.SetJacobian(logisticJacobian)
	return m, nil
}

func logisticForward(x0 mat.Vector, x1 *mat.VecDense, l *Logistic) error {
	x := x0.AtVec(0)
	x1.SetVec(0, l.R*x*(1-x))
	return nil
}

func logisticJacobian(x0 mat.Vector, J *mat.Dense, l *Logistic) error {
	J.Set(0, 0, l.R*(1-2*x0.AtVec(0)))
	return nil
}

func (l *Logistic) GetParams() map[string]float64 {
	return map[string]float64{"r": l.R}
}

func (l *Logistic) SetParam(name string, value float64) error {
	switch name {
	case "r":
		l.R = value
	default:
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, name)
	}
	return nil
}
