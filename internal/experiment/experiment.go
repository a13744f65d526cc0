package experiment

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/san-kum/dynmap/internal/config"
	"github.com/san-kum/dynmap/internal/dynamo"
	"github.com/san-kum/dynmap/internal/metrics"
	"github.com/san-kum/dynmap/internal/models"
	"github.com/san-kum/dynmap/internal/orbit"
	"github.com/san-kum/dynmap/internal/storage"
)

// Experiment binds a run configuration to a concrete map.
type Experiment struct {
	cfg        *config.Config
	sys        dynamo.System
	dir        orbit.Direction
	randSource *rand.Rand
	collector  *metrics.Collector
}

// New validates cfg and builds its map from reg.
func New(cfg *config.Config, reg *models.Registry) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dir, err := orbit.ParseDirection(cfg.Direction)
	if err != nil {
		return nil, err
	}
	sys, err := reg.Get(cfg.Model, cfg.Params)
	if err != nil {
		return nil, err
	}
	if err := sys.SetFiniteDifferenceStep(cfg.FDStep); err != nil {
		return nil, err
	}
	if !cfg.ExactJacobian {
		if err := sys.UseExactJacobian(false); err != nil {
			return nil, err
		}
	}

	return &Experiment{
		cfg:        cfg,
		sys:        sys,
		dir:        dir,
		randSource: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// SetCollector routes evaluation counts of the map to c.
func (e *Experiment) SetCollector(c *metrics.Collector) {
	e.collector = c
	e.sys.SetObserver(c.Observer(e.cfg.Model))
}

func (e *Experiment) System() dynamo.System      { return e.sys }
func (e *Experiment) Config() *config.Config     { return e.cfg }
func (e *Experiment) Direction() orbit.Direction { return e.dir }

// Newton returns the configured fixed-point search settings.
func (e *Experiment) Newton() *dynamo.NewtonSettings {
	return &dynamo.NewtonSettings{Tol: e.cfg.Newton.Tol, MaxIter: e.cfg.Newton.MaxIter}
}

// InitialState returns init_state, or the origin when it is empty.
func (e *Experiment) InitialState() (dynamo.State, error) {
	dim := e.sys.Dim()
	if len(e.cfg.InitState) == 0 {
		return make(dynamo.State, dim), nil
	}
	if len(e.cfg.InitState) != dim {
		return nil, fmt.Errorf("%w: init_state has %d values, model %s has dimension %d",
			dynamo.ErrDimensionMismatch, len(e.cfg.InitState), e.cfg.Model, dim)
	}
	return dynamo.State(e.cfg.InitState).Clone(), nil
}

// Run generates the configured orbit from the initial state.
func (e *Experiment) Run(ctx context.Context) (*orbit.Orbit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	x0, err := e.InitialState()
	if err != nil {
		return nil, err
	}
	o, err := orbit.New(e.sys, e.cfg.Order, e.dir, e.cfg.Steps, x0.Vec())
	if err != nil {
		return nil, err
	}
	e.countOrbits(1)
	return o, nil
}

// InitialStates draws n points uniformly within ensemble.spread of the
// initial state in every coordinate. The sequence depends only on seed.
func (e *Experiment) InitialStates(n int) ([]dynamo.State, error) {
	center, err := e.InitialState()
	if err != nil {
		return nil, err
	}
	spread := e.cfg.Ensemble.Spread
	out := make([]dynamo.State, n)
	for i := range out {
		x := center.Clone()
		for j := range x {
			x[j] += spread * (2*e.randSource.Float64() - 1)
		}
		out[i] = x
	}
	return out, nil
}

// RunEnsemble generates ensemble.count orbits from randomized initial
// states in parallel.
func (e *Experiment) RunEnsemble(ctx context.Context) ([]*orbit.Orbit, error) {
	x0s, err := e.InitialStates(e.cfg.Ensemble.Count)
	if err != nil {
		return nil, err
	}
	ens := orbit.NewEnsemble(e.sys, e.cfg.Order, e.dir, e.cfg.Steps)
	if e.cfg.Ensemble.Workers > 0 {
		ens.SetWorkers(e.cfg.Ensemble.Workers)
	}
	orbits, err := ens.Run(ctx, x0s)
	if err != nil {
		return nil, err
	}
	e.countOrbits(len(orbits))
	return orbits, nil
}

func (e *Experiment) countOrbits(n int) {
	if e.collector == nil {
		return
	}
	for i := 0; i < n; i++ {
		e.collector.OrbitGenerated(e.cfg.Model, e.dir.String())
	}
}

// Metadata describes the run for the storage catalogue.
func (e *Experiment) Metadata() storage.RunMetadata {
	return storage.RunMetadata{
		Model:     e.cfg.Model,
		Params:    e.sys.GetParams(),
		Order:     e.cfg.Order,
		Steps:     e.cfg.Steps,
		Direction: e.dir.String(),
		Seed:      e.cfg.Seed,
	}
}
