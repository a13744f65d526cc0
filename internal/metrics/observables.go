package metrics

import (
	"fmt"
	"math"

	"github.com/san-kum/dynmap/internal/dynamo"
)

// Mean is the orbit average of one coordinate.
type Mean struct {
	name    string
	comp    int
	sum     float64
	samples int
}

func NewMean(comp int) *Mean {
	return &Mean{
		name: fmt.Sprintf("mean_x%d", comp),
		comp: comp,
	}
}

func (m *Mean) Name() string { return m.name }

func (m *Mean) Observe(x dynamo.State, _ int) {
	if m.comp >= len(x) {
		return
	}
	m.sum += x[m.comp]
	m.samples++
}

func (m *Mean) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *Mean) Reset() {
	m.sum = 0
	m.samples = 0
}

// Bounded is the fraction of points whose coordinates all stay within
// threshold in absolute value.
type Bounded struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewBounded(threshold float64) *Bounded {
	return &Bounded{
		name:      "bounded",
		threshold: threshold,
	}
}

func (b *Bounded) Name() string {
	return b.name
}

func (b *Bounded) Observe(x dynamo.State, _ int) {
	b.samples++
	if !x.IsValid() {
		b.violations++
		return
	}
	for _, val := range x {
		if math.Abs(val) > b.threshold {
			b.violations++
			break
		}
	}
}

func (b *Bounded) Value() float64 {
	if b.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(b.violations)/float64(b.samples)
}

func (b *Bounded) Reset() {
	b.violations = 0
	b.samples = 0
}

// StepSize is the mean Euclidean distance between consecutive points. It
// vanishes on a fixed point.
type StepSize struct {
	name  string
	prev  dynamo.State
	sum   float64
	steps int
}

func NewStepSize() *StepSize {
	return &StepSize{
		name: "step_size",
	}
}

func (s *StepSize) Name() string { return s.name }

func (s *StepSize) Observe(x dynamo.State, _ int) {
	if s.prev != nil && len(s.prev) == len(x) {
		d := 0.0
		for i := range x {
			diff := x[i] - s.prev[i]
			d += diff * diff
		}
		s.sum += math.Sqrt(d)
		s.steps++
	}
	s.prev = x.Clone()
}

func (s *StepSize) Value() float64 {
	if s.steps == 0 {
		return 0
	}
	return s.sum / float64(s.steps)
}

func (s *StepSize) Reset() {
	s.prev = nil
	s.sum = 0
	s.steps = 0
}
