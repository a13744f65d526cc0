// Package models provides concrete discrete maps built on [dynamo.Map].
//
//   - [Standard]: Chirikov standard map, reduced to the torus or as a lift
//   - [Henon]: Hénon map with closed-form fixed points
//   - [Logistic]: one-dimensional logistic map
//   - [Linear]: x' = A x, the reference case for Jacobian checks
//
// Every model except [Linear] implements [dynamo.Configurable] and is
// available by name through [Registry].
package models
