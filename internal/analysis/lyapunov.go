package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/dynmap/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// LyapunovSpectrum estimates all Lyapunov exponents of the order-n map along
// the orbit of x0, in descending order. A positive first exponent indicates
// chaos; for an area-preserving map the exponents sum to zero.
//
// Algorithm:
//  1. Discard transient iterates
//  2. Push an orthonormal frame Q through the Jacobian: J Q = Q' R
//  3. λ_i ≈ (1/(n·steps)) Σ ln|R_ii|
func LyapunovSpectrum(sys dynamo.System, order int, x0 dynamo.State, transient, steps int) ([]float64, error) {
	if order < 1 {
		return nil, fmt.Errorf("%w: lyapunov spectrum needs order >= 1, got %d", dynamo.ErrInvalidOrder, order)
	}
	if steps < 1 {
		return nil, fmt.Errorf("lyapunov spectrum needs at least one step, got %d", steps)
	}
	dim := sys.Dim()
	if len(x0) != dim {
		return nil, fmt.Errorf("%w: initial condition of length %d, map dimension %d", dynamo.ErrDimensionMismatch, len(x0), dim)
	}

	x := x0.Vec()
	if err := sys.Forward(transient*order, x, x); err != nil {
		return nil, fmt.Errorf("transient: %w", err)
	}

	q := mat.NewDense(dim, dim, nil)
	for i := 0; i < dim; i++ {
		q.Set(i, i, 1)
	}
	var (
		jac  mat.Dense
		prod mat.Dense
		r    mat.Dense
		qr   mat.QR
	)
	sums := make([]float64, dim)

	for step := 0; step < steps; step++ {
		if err := sys.Jacobian(order, x, &jac); err != nil {
			return nil, fmt.Errorf("step %d: %w", step, err)
		}
		prod.Mul(&jac, q)
		qr.Factorize(&prod)
		qr.QTo(q)
		qr.RTo(&r)
		for i := 0; i < dim; i++ {
			sums[i] += math.Log(math.Abs(r.At(i, i)))
		}

		if err := sys.Forward(order, x, x); err != nil {
			return nil, fmt.Errorf("step %d: %w", step, err)
		}
	}

	total := float64(steps * order)
	for i := range sums {
		sums[i] /= total
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sums)))
	return sums, nil
}
