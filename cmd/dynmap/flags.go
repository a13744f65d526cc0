package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/san-kum/dynmap/internal/config"
)

// runFlags holds the per-command overrides applied on top of the
// preset and config file.
type runFlags struct {
	order      int
	steps      int
	backward   bool
	params     map[string]string
	x0         []float64
	seed       int64
	fdStep     float64
	finiteDiff bool
	count      int
	spread     float64
	workers    int
}

func (f *runFlags) register(fs *pflag.FlagSet) {
	fs.IntVar(&f.order, "order", config.DefaultOrder, "compositions of the map per point")
	fs.IntVar(&f.steps, "steps", config.DefaultSteps, "orbit length")
	fs.BoolVar(&f.backward, "backward", false, "iterate the inverse map")
	fs.StringToStringVarP(&f.params, "param", "p", nil, "model parameter, e.g. -p k=0.9")
	fs.Float64SliceVar(&f.x0, "x0", nil, "initial condition")
	fs.Int64Var(&f.seed, "seed", 1, "random seed for ensembles")
	fs.Float64Var(&f.fdStep, "fd-step", config.DefaultFDStep, "finite difference step")
	fs.BoolVar(&f.finiteDiff, "fd", false, "use finite differences even when an exact Jacobian exists")
	fs.IntVar(&f.count, "count", 16, "ensemble size")
	fs.Float64Var(&f.spread, "spread", 0.01, "ensemble spread around x0")
	fs.IntVar(&f.workers, "workers", 0, "ensemble workers (0 uses GOMAXPROCS)")
}

// apply copies every flag the user set onto cfg.
func (f *runFlags) apply(fs *pflag.FlagSet, cfg *config.Config) error {
	if fs.Changed("order") {
		cfg.Order = f.order
	}
	if fs.Changed("steps") {
		cfg.Steps = f.steps
	}
	if fs.Changed("backward") {
		cfg.Direction = "forward"
		if f.backward {
			cfg.Direction = "backward"
		}
	}
	if fs.Changed("param") {
		params, err := parseParams(f.params)
		if err != nil {
			return err
		}
		if cfg.Params == nil {
			cfg.Params = make(map[string]float64, len(params))
		}
		for k, v := range params {
			cfg.Params[k] = v
		}
	}
	if fs.Changed("x0") {
		cfg.InitState = append([]float64(nil), f.x0...)
	}
	if fs.Changed("seed") {
		cfg.Seed = f.seed
	}
	if fs.Changed("fd-step") {
		cfg.FDStep = f.fdStep
	}
	if fs.Changed("fd") {
		cfg.ExactJacobian = !f.finiteDiff
	}
	if fs.Changed("count") {
		cfg.Ensemble.Count = f.count
	}
	if fs.Changed("spread") {
		cfg.Ensemble.Spread = f.spread
	}
	if fs.Changed("workers") {
		cfg.Ensemble.Workers = f.workers
	}
	return cfg.Validate()
}

func parseParams(raw map[string]string) (map[string]float64, error) {
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", k, err)
		}
		out[k] = f
	}
	return out, nil
}

// resolveConfig layers defaults, the preset, the config file and flags,
// in that order.
func resolveConfig(model, presetName, path string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if presetName != "" {
		lookup := model
		if lookup == "" {
			lookup = config.DefaultModel
		}
		cfg = config.GetPreset(lookup, presetName)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", presetName, config.ListPresets(lookup))
		}
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if model != "" {
		if cfg.Model != model && presetName == "" && path == "" {
			// Default init_state is two dimensional; let the experiment
			// fall back to the origin for other models.
			cfg.InitState = nil
		}
		cfg.Model = model
	}
	return cfg, nil
}
