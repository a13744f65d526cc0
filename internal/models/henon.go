package models

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/dynmap/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// ErrNotInvertible is returned by backward maps whose inverse does not
// exist for the current parameters.
var ErrNotInvertible = errors.New("models: map is not invertible for these parameters")

// Henon is the Hénon map x' = 1 - A x^2 + y, y' = B x.
type Henon struct {
	A float64
	B float64
}

func NewHenon() *Henon {
	return &Henon{A: 1.4, B: 0.3}
}

func (h *Henon) Map() (*dynamo.Map[*Henon], error) {
	m, err := dynamo.NewMap(2, henonForward, henonBackward, h)
	if err != nil {
		return nil, err
	}
	m.SetJacobian(henonJacobian)
	return m, nil
}

func henonForward(x0 mat.Vector, x1 *mat.VecDense, h *Henon) error {
	x, y := x0.AtVec(0), x0.AtVec(1)
	x1.SetVec(0, 1-h.A*x*x+y)
	x1.SetVec(1, h.B*x)
	return nil
}

func henonBackward(x0 mat.Vector, x1 *mat.VecDense, h *Henon) error {
	if h.B == 0 {
		return ErrNotInvertible
	}
	xn, yn := x0.AtVec(0), x0.AtVec(1)
	x := yn / h.B
	x1.SetVec(0, x)
	x1.SetVec(1, xn-1+h.A*x*x)
	return nil
}

func henonJacobian(x0 mat.Vector, J *mat.Dense, h *Henon) error {
	J.Set(0, 0, -2*h.A*x0.AtVec(0))
	J.Set(0, 1, 1)
	J.Set(1, 0, h.B)
	J.Set(1, 1, 0)
	return nil
}

// FixedPoints returns the two period-1 points in closed form, or nil when
// they are complex.
func (h *Henon) FixedPoints() []dynamo.State {
	// A x^2 + (1 - B) x - 1 = 0
	if h.A == 0 {
		if h.B == 1 {
			return nil
		}
		x := 1 / (1 - h.B)
		return []dynamo.State{{x, h.B * x}}
	}
	disc := (1-h.B)*(1-h.B) + 4*h.A
	if disc < 0 {
		return nil
	}
	sq := math.Sqrt(disc)
	xs := []float64{(-(1 - h.B) + sq) / (2 * h.A), (-(1 - h.B) - sq) / (2 * h.A)}
	out := make([]dynamo.State, 0, len(xs))
	for _, x := range xs {
		out = append(out, dynamo.State{x, h.B * x})
	}
	return out
}

func (h *Henon) GetParams() map[string]float64 {
	return map[string]float64{"a": h.A, "b": h.B}
}

func (h *Henon) SetParam(name string, value float64) error {
	switch name {
	case "a":
		h.A = value
	case "b":
		h.B = value
	default:
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, name)
	}
	return nil
}
