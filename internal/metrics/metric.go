package metrics

import (
	"github.com/san-kum/dynmap/internal/dynamo"
	"github.com/san-kum/dynmap/internal/orbit"
)

// Metric accumulates a scalar over the points of an orbit.
type Metric interface {
	Name() string
	Observe(x dynamo.State, step int)
	Value() float64
	Reset()
}

// Evaluate resets each metric, feeds it every point of o and returns the
// values by name.
func Evaluate(o *orbit.Orbit, ms ...Metric) map[string]float64 {
	for _, m := range ms {
		m.Reset()
	}
	for i, x := range o.Points() {
		for _, m := range ms {
			m.Observe(x, i)
		}
	}
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}
