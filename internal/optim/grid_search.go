package optim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/san-kum/dynmap/internal/experiment"
)

var ErrEmptyGrid = errors.New("optim: grid has no points")

// Objective scores one configured experiment.
type Objective func(ctx context.Context, exp *experiment.Experiment) (float64, error)

// Sample is one evaluated grid point. Err is set when building or scoring
// the experiment failed; Value is then NaN.
type Sample struct {
	Params map[string]float64
	Value  float64
	Err    error
}

type Result struct {
	Best    Sample
	Samples []Sample
	Failed  int
}

// GridSearch evaluates an objective on the cartesian product of parameter
// ranges.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	maximize   bool
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d parameter names for %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("%w: %s has no values", ErrEmptyGrid, params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Maximize makes Search keep the largest value instead of the smallest.
func (g *GridSearch) Maximize(on bool) { g.maximize = on }

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search builds an experiment for every grid point and scores it. Failing
// points are recorded and skipped; it errors only when no point succeeds
// or ctx is done.
func (g *GridSearch) Search(
	ctx context.Context,
	buildExperiment func(params map[string]float64) (*experiment.Experiment, error),
	objective Objective,
) (*Result, error) {
	res := &Result{Samples: make([]Sample, 0, g.Size())}
	best := math.Inf(1)
	if g.maximize {
		best = math.Inf(-1)
	}
	found := false

	err := g.searchRecursive(ctx, 0, make(map[string]float64), func(params map[string]float64) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		s := Sample{Params: params, Value: math.NaN()}
		exp, err := buildExperiment(params)
		if err == nil {
			s.Value, err = objective(ctx, exp)
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.Err = err
			s.Value = math.NaN()
			res.Failed++
			slog.Debug("grid point failed", "params", params, "error", err)
		}
		res.Samples = append(res.Samples, s)

		if s.Err == nil && !math.IsNaN(s.Value) && g.better(s.Value, best) {
			best = s.Value
			res.Best = s
			found = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return res, fmt.Errorf("optim: all %d grid points failed", len(res.Samples))
	}
	return res, nil
}

func (g *GridSearch) better(v, best float64) bool {
	if g.maximize {
		return v > best
	}
	return v < best
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	visit func(map[string]float64) error,
) error {
	if depth == len(g.paramNames) {
		return visit(current)
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, visit); err != nil {
			return err
		}
	}
	return nil
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

// SortedSamples orders samples by value, best first, failures last.
func (r *Result) SortedSamples(maximize bool) []Sample {
	out := append([]Sample(nil), r.Samples...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Value, out[j].Value
		switch {
		case math.IsNaN(a):
			return false
		case math.IsNaN(b):
			return true
		case maximize:
			return a > b
		}
		return a < b
	})
	return out
}
