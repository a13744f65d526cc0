package models

import (
	"fmt"
	"sort"

	"github.com/san-kum/dynmap/internal/dynamo"
)

type Registry struct {
	models map[string]func() (dynamo.System, error)
}

func NewRegistry() *Registry {
	r := &Registry{
		models: make(map[string]func() (dynamo.System, error)),
	}

	r.models["standard"] = func() (dynamo.System, error) { return NewStandard().Map() }
	r.models["chirikov"] = func() (dynamo.System, error) { return NewChirikov().Map() }
	r.models["henon"] = func() (dynamo.System, error) { return NewHenon().Map() }
	r.models["logistic"] = func() (dynamo.System, error) { return NewLogistic().Map() }

	return r
}

// Get builds a fresh map for the named model and applies params on top of
// the model defaults.
func (r *Registry) Get(name string, params map[string]float64) (dynamo.System, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	sys, err := fn()
	if err != nil {
		return nil, err
	}
	for k, v := range params {
		if err := sys.SetParam(k, v); err != nil {
			return nil, fmt.Errorf("model %s: %w", name, err)
		}
	}
	return sys, nil
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
