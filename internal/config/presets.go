package config

import "sort"

var Presets = map[string]map[string]*Config{
	"standard": {
		"demo": {
			Model: "standard", Params: map[string]float64{"k": 0.4},
			Order: 1, Steps: 10000, InitState: []float64{0.5, 0.5},
		},
		"critical": {
			Model: "standard", Params: map[string]float64{"k": 0.971635},
			Order: 1, Steps: 20000, InitState: []float64{0.5, 0.5},
		},
		"chaotic": {
			Model: "standard", Params: map[string]float64{"k": 5.0},
			Order: 1, Steps: 20000, InitState: []float64{0.5, 0.5},
		},
	},
	"chirikov": {
		"demo": {
			Model: "chirikov", Params: map[string]float64{"k": 1.46},
			Order: 1, Steps: 10000, InitState: []float64{0.1, 0.3},
		},
	},
	"henon": {
		"classic": {
			Model: "henon", Params: map[string]float64{"a": 1.4, "b": 0.3},
			Order: 1, Steps: 10000, InitState: []float64{0, 0},
		},
		"periodic": {
			Model: "henon", Params: map[string]float64{"a": 1.0, "b": 0.3},
			Order: 1, Steps: 2000, InitState: []float64{0, 0},
		},
	},
	"logistic": {
		"chaos": {
			Model: "logistic", Params: map[string]float64{"r": 3.9},
			Order: 1, Steps: 5000, InitState: []float64{0.2},
		},
		"period2": {
			Model: "logistic", Params: map[string]float64{"r": 3.2},
			Order: 1, Steps: 500, InitState: []float64{0.2},
		},
	},
}

// GetPreset returns a copy of the named preset with unset fields filled
// from [DefaultConfig], or nil if it does not exist.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	p, ok := modelPresets[preset]
	if !ok {
		return nil
	}

	cfg := DefaultConfig()
	cfg.Model = p.Model
	cfg.Params = p.Params
	cfg.Order = p.Order
	cfg.Steps = p.Steps
	cfg.InitState = p.InitState
	return cfg.Clone()
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ListModels() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
