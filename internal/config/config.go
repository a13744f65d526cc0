package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultModel     = "standard"
	DefaultOrder     = 1
	DefaultSteps     = 10000
	DefaultDirection = "forward"
	DefaultFDStep    = 1e-6
	DefaultLogLevel  = "info"
	DefaultNewtonTol = 1e-10
	DefaultNewtonMax = 50
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Model         string             `yaml:"model"`
	Params        map[string]float64 `yaml:"params,omitempty"`
	Order         int                `yaml:"order"`
	Steps         int                `yaml:"steps"`
	Direction     string             `yaml:"direction"`
	InitState     []float64          `yaml:"init_state"`
	FDStep        float64            `yaml:"fd_step"`
	ExactJacobian bool               `yaml:"exact_jacobian"`
	Seed          int64              `yaml:"seed"`
	Ensemble      EnsembleConfig     `yaml:"ensemble"`
	Newton        NewtonConfig       `yaml:"newton"`
	LogLevel      string             `yaml:"log_level"`
}

type EnsembleConfig struct {
	Count   int     `yaml:"count"`
	Spread  float64 `yaml:"spread"`
	Workers int     `yaml:"workers,omitempty"`
}

type NewtonConfig struct {
	Tol     float64 `yaml:"tol"`
	MaxIter int     `yaml:"max_iter"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:         DefaultModel,
		Order:         DefaultOrder,
		Steps:         DefaultSteps,
		Direction:     DefaultDirection,
		InitState:     []float64{0.5, 0.5},
		FDStep:        DefaultFDStep,
		ExactJacobian: true,
		Seed:          1,
		Ensemble: EnsembleConfig{
			Count:  16,
			Spread: 0.01,
		},
		Newton: NewtonConfig{
			Tol:     DefaultNewtonTol,
			MaxIter: DefaultNewtonMax,
		},
		LogLevel: DefaultLogLevel,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	switch {
	case c.Model == "":
		return fmt.Errorf("%w: model is required", ErrInvalidConfig)
	case c.Order < 0:
		return fmt.Errorf("%w: order %d is negative", ErrInvalidConfig, c.Order)
	case c.Steps < 0:
		return fmt.Errorf("%w: steps %d is negative", ErrInvalidConfig, c.Steps)
	case !(c.FDStep > 0):
		return fmt.Errorf("%w: fd_step must be positive, got %g", ErrInvalidConfig, c.FDStep)
	case c.Ensemble.Count < 0:
		return fmt.Errorf("%w: ensemble count %d is negative", ErrInvalidConfig, c.Ensemble.Count)
	case c.Ensemble.Spread < 0:
		return fmt.Errorf("%w: ensemble spread %g is negative", ErrInvalidConfig, c.Ensemble.Spread)
	case !(c.Newton.Tol > 0) || c.Newton.MaxIter < 1:
		return fmt.Errorf("%w: newton tol %g, max_iter %d", ErrInvalidConfig, c.Newton.Tol, c.Newton.MaxIter)
	}
	switch c.Direction {
	case "", "forward", "backward":
	default:
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidConfig, c.Direction)
	}
	return nil
}

// Clone returns a deep copy, so presets can be adjusted without changing
// the shared table.
func (c *Config) Clone() *Config {
	out := *c
	out.InitState = append([]float64(nil), c.InitState...)
	if c.Params != nil {
		out.Params = make(map[string]float64, len(c.Params))
		for k, v := range c.Params {
			out.Params[k] = v
		}
	}
	return &out
}
