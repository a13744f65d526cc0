package orbit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/san-kum/dynmap/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// ErrOutOfRange indicates a point or coordinate index past the stored orbit.
var ErrOutOfRange = errors.New("orbit: index out of range")

// ErrInvalidLength indicates a negative orbit length.
var ErrInvalidLength = errors.New("orbit: length must be non-negative")

type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "", "forward", "fw":
		return Forward, nil
	case "backward", "bw":
		return Backward, nil
	}
	return Forward, fmt.Errorf("unknown direction: %s", s)
}

// GenerationError reports the orbit point whose computation failed.
type GenerationError struct {
	Point   int
	Wrapped error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("orbit: generating point %d: %v", e.Point, e.Wrapped)
}

func (e *GenerationError) Unwrap() error {
	return e.Wrapped
}

// Orbit is a trajectory of length+1 points, where each point is the image
// of the previous one under order applications of the map. It is computed
// once in [New] and never changes afterwards.
type Orbit struct {
	m      dynamo.Iterator
	order  int
	dir    Direction
	length int
	points []*mat.VecDense
}

// New generates the whole orbit eagerly. m must not be used by another
// goroutine while New runs.
func New(m dynamo.Iterator, order int, dir Direction, length int, x0 mat.Vector) (*Orbit, error) {
	return generate(context.Background(), m, order, dir, length, x0)
}

// generate is New with a cancellation check before every point.
func generate(ctx context.Context, m dynamo.Iterator, order int, dir Direction, length int, x0 mat.Vector) (*Orbit, error) {
	if length < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLength, length)
	}
	if order < 0 {
		return nil, fmt.Errorf("%w: got %d", dynamo.ErrInvalidOrder, order)
	}
	dim := m.Dim()
	if x0 == nil {
		return nil, fmt.Errorf("%w: nil initial condition, map dimension %d", dynamo.ErrDimensionMismatch, dim)
	}
	if x0.Len() != dim {
		return nil, fmt.Errorf("%w: initial condition of length %d, map dimension %d", dynamo.ErrDimensionMismatch, x0.Len(), dim)
	}

	o := &Orbit{
		m:      m,
		order:  order,
		dir:    dir,
		length: length,
		points: make([]*mat.VecDense, length+1),
	}
	for i := range o.points {
		o.points[i] = mat.NewVecDense(dim, nil)
	}

	o.points[0].CopyVec(x0)
	step := m.Forward
	if dir == Backward {
		step = m.Backward
	}
	for i := 1; i <= length; i++ {
		if ctx.Err() != nil {
			return nil, context.Cause(ctx)
		}
		if err := step(order, o.points[i-1], o.points[i]); err != nil {
			return nil, &GenerationError{Point: i, Wrapped: err}
		}
	}
	return o, nil
}

func (o *Orbit) Map() dynamo.Iterator { return o.m }
func (o *Orbit) Order() int           { return o.order }
func (o *Orbit) Direction() Direction { return o.dir }
func (o *Orbit) Len() int             { return o.length }
func (o *Orbit) Dim() int             { return o.points[0].Len() }

// Component returns coordinate comp of point. Out-of-range indices yield
// NaN together with an error wrapping [ErrOutOfRange].
func (o *Orbit) Component(point, comp int) (float64, error) {
	if point < 0 || point > o.length || comp < 0 || comp >= o.Dim() {
		slog.Debug("orbit component out of range", "point", point, "comp", comp, "length", o.length, "dim", o.Dim())
		return math.NaN(), fmt.Errorf("%w: point %d of %d, component %d of %d", ErrOutOfRange, point, o.length, comp, o.Dim())
	}
	return o.points[point].AtVec(comp), nil
}

// Point returns a copy of the i-th stored state.
func (o *Orbit) Point(i int) (dynamo.State, error) {
	if i < 0 || i > o.length {
		return nil, fmt.Errorf("%w: point %d of %d", ErrOutOfRange, i, o.length)
	}
	return dynamo.StateOf(o.points[i]), nil
}

// Points returns a copy of the whole trajectory.
func (o *Orbit) Points() []dynamo.State {
	out := make([]dynamo.State, len(o.points))
	for i, p := range o.points {
		out[i] = dynamo.StateOf(p)
	}
	return out
}

// Series returns coordinate comp of every point, in order.
func (o *Orbit) Series(comp int) ([]float64, error) {
	if comp < 0 || comp >= o.Dim() {
		return nil, fmt.Errorf("%w: component %d of %d", ErrOutOfRange, comp, o.Dim())
	}
	out := make([]float64, len(o.points))
	for i, p := range o.points {
		out[i] = p.AtVec(comp)
	}
	return out, nil
}
