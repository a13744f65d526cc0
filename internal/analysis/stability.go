package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/san-kum/dynmap/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// DefaultMarginalTol is how close to the unit circle an eigenvalue must be
// to count as marginal.
const DefaultMarginalTol = 1e-9

var ErrEigen = errors.New("analysis: eigenvalue decomposition failed")

type Stability int

const (
	Stable Stability = iota
	Unstable
	Saddle
	Marginal
)

func (s Stability) String() string {
	switch s {
	case Stable:
		return "stable"
	case Unstable:
		return "unstable"
	case Saddle:
		return "saddle"
	case Marginal:
		return "marginal"
	}
	return fmt.Sprintf("Stability(%d)", int(s))
}

// Classify sorts a fixed point by the moduli of its Jacobian eigenvalues.
// Any eigenvalue within tol of the unit circle makes it marginal.
func Classify(eigenvalues []complex128, tol float64) Stability {
	inside, outside := 0, 0
	for _, ev := range eigenvalues {
		r := cmplx.Abs(ev)
		switch {
		case math.Abs(r-1) <= tol:
			return Marginal
		case r < 1:
			inside++
		default:
			outside++
		}
	}
	switch {
	case outside == 0:
		return Stable
	case inside == 0:
		return Unstable
	}
	return Saddle
}

// FixedPointReport describes a periodic point of period order.
type FixedPointReport struct {
	Point       dynamo.State
	Order       int
	Iterations  int
	Eigenvalues []complex128
	Stability   Stability
}

// AnalyzeFixedPoint refines guess with Newton's method and classifies the
// result from the eigenvalues of the order-n Jacobian.
func AnalyzeFixedPoint(sys dynamo.System, order int, guess dynamo.State, settings *dynamo.NewtonSettings) (*FixedPointReport, error) {
	var xf mat.VecDense
	iters, err := sys.FixedPoint(order, guess.Vec(), &xf, settings)
	if err != nil {
		return nil, err
	}

	var jac mat.Dense
	if err := sys.Jacobian(order, &xf, &jac); err != nil {
		return nil, err
	}
	eigs, err := Eigenvalues(&jac)
	if err != nil {
		return nil, err
	}

	return &FixedPointReport{
		Point:       dynamo.StateOf(&xf),
		Order:       order,
		Iterations:  iters,
		Eigenvalues: eigs,
		Stability:   Classify(eigs, DefaultMarginalTol),
	}, nil
}

func Eigenvalues(a mat.Matrix) ([]complex128, error) {
	var eig mat.Eigen
	if ok := eig.Factorize(a, mat.EigenNone); !ok {
		return nil, ErrEigen
	}
	return eig.Values(nil), nil
}
