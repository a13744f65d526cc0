// Package orbit stores trajectories of a discrete map.
//
// An orbit of length L holds L+1 points x_0..x_L where x_{i+1} is x_i
// mapped forward (or backward) order times. Orbits are generated eagerly
// by [New] and are read-only afterwards.
//
// Orbits are written in a whitespace separated text format, one point per
// line, and read back with [Read]. [Ensemble] generates many orbits of the
// same map in parallel.
package orbit
