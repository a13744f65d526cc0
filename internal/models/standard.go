package models

import (
	"fmt"
	"math"

	"github.com/san-kum/dynmap/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

const twoPi = 2 * math.Pi

// Standard is the Chirikov standard map on (theta, p):
//
//	p'     = p + K sin(theta)
//	theta' = theta + p'
//
// With Reduce set both coordinates are folded into [0, 2π) after every
// step, which is the usual phase-space picture. Without it the map is the
// plain lift on R^2.
type Standard struct {
	K      float64
	Reduce bool
}

func NewStandard() *Standard {
	return &Standard{K: 0.4, Reduce: true}
}

// NewChirikov is the unreduced lift used for single-step checks.
func NewChirikov() *Standard {
	return &Standard{K: 1.46}
}

// Map wires the standard map, its inverse and its exact Jacobian.
func (s *Standard) Map() (*dynamo.Map[*Standard], error) {
	m, err := dynamo.NewMap(2, standardForward, standardBackward, s)
	if err != nil {
		return nil, err
	}
	m.SetJacobian(standardJacobian)
	return m, nil
}

func standardForward(x0 mat.Vector, x1 *mat.VecDense, s *Standard) error {
	th0, p0 := x0.AtVec(0), x0.AtVec(1)
	p1 := p0 + s.K*math.Sin(th0)
	th1 := th0 + p1
	if s.Reduce {
		th1, p1 = wrapAngle(th1), wrapAngle(p1)
	}
	x1.SetVec(0, th1)
	x1.SetVec(1, p1)
	return nil
}

func standardBackward(x0 mat.Vector, x1 *mat.VecDense, s *Standard) error {
	th1, p1 := x0.AtVec(0), x0.AtVec(1)
	th0 := th1 - p1
	p0 := p1 - s.K*math.Sin(th0)
	if s.Reduce {
		th0, p0 = wrapAngle(th0), wrapAngle(p0)
	}
	x1.SetVec(0, th0)
	x1.SetVec(1, p0)
	return nil
}

// The reduction is locally the identity, so it does not enter the derivative.
func standardJacobian(x0 mat.Vector, J *mat.Dense, s *Standard) error {
	kc := s.K * math.Cos(x0.AtVec(0))
	J.Set(0, 0, 1+kc)
	J.Set(0, 1, 1)
	J.Set(1, 0, kc)
	J.Set(1, 1, 1)
	return nil
}

func (s *Standard) GetParams() map[string]float64 {
	return map[string]float64{"k": s.K}
}

func (s *Standard) SetParam(name string, value float64) error {
	switch name {
	case "k":
		s.K = value
	default:
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, name)
	}
	return nil
}

// wrapAngle folds x into [0, 2π).
func wrapAngle(x float64) float64 {
	x = math.Mod(x, twoPi)
	if x < 0 {
		x += twoPi
		if x >= twoPi {
			x = 0
		}
	}
	return x
}
