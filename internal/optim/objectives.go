package optim

import (
	"context"

	"github.com/san-kum/dynmap/internal/analysis"
	"github.com/san-kum/dynmap/internal/experiment"
	"github.com/san-kum/dynmap/internal/metrics"
)

// LargestLyapunov scores an experiment by the leading Lyapunov exponent
// along the orbit of its initial state.
func LargestLyapunov(transient int) Objective {
	return func(_ context.Context, exp *experiment.Experiment) (float64, error) {
		x0, err := exp.InitialState()
		if err != nil {
			return 0, err
		}
		cfg := exp.Config()
		exps, err := analysis.LyapunovSpectrum(exp.System(), max(cfg.Order, 1), x0, transient, cfg.Steps)
		if err != nil {
			return 0, err
		}
		return exps[0], nil
	}
}

// OrbitMetric scores an experiment by evaluating m on its orbit.
func OrbitMetric(newMetric func() metrics.Metric) Objective {
	return func(ctx context.Context, exp *experiment.Experiment) (float64, error) {
		o, err := exp.Run(ctx)
		if err != nil {
			return 0, err
		}
		m := newMetric()
		return metrics.Evaluate(o, m)[m.Name()], nil
	}
}
