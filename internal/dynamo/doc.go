// Package dynamo provides the core engine for discrete dynamical maps.
//
// A [Map] wraps a caller-supplied transition T: R^d -> R^d and offers:
//
//   - [Map.Forward] / [Map.Backward]: n-fold composition of T or its inverse
//   - [Map.Jacobian]: derivative of T^n by the chain rule, exact or by
//     forward finite differences
//   - [Map.FixedPoint]: Newton search for x* with T^n(x*) = x*
//
// Vectors and matrices are gonum types ([mat.VecDense], [mat.Dense]).
//
// # Example
//
//	m, _ := dynamo.NewMap(2, fw, bw, &params)
//	m.SetJacobian(jac)
//	x1 := mat.NewVecDense(2, nil)
//	err := m.Forward(10, x0, x1)
//
// # Thread Safety
//
// A Map reuses private scratch buffers on every call and is NOT safe for
// concurrent use. Give each goroutine its own copy via [Map.Clone] or
// [Map.Spawn], or serialize calls externally.
package dynamo
