package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/stiffsim/internal/controller"
	"github.com/san-kum/stiffsim/internal/csp"
	"github.com/san-kum/stiffsim/internal/dynamo"
	"github.com/san-kum/stiffsim/internal/integrators"
	"github.com/san-kum/stiffsim/internal/stiffness"
)

const (
	DefaultDt                 = 1e-6
	DefaultTStop              = 0.2
	DefaultAbsTol             = 1e-8
	DefaultRelTol             = 1e-6
	DefaultMonitorThreshold   = 1e4
	DefaultIndicatorThreshold = 0.0
	DefaultTimescaleLength    = 1.0
	DefaultSampleStep         = 3
)

type Config struct {
	Equation           string    `yaml:"equation"`
	Metric             string    `yaml:"metric"`
	Dt                 float64   `yaml:"dt"`
	TStart             float64   `yaml:"t_start"`
	TStop              float64   `yaml:"t_stop"`
	AbsTol             float64   `yaml:"abs_tol"`
	RelTol             float64   `yaml:"rel_tol"`
	UseJacobian        bool      `yaml:"use_jacobian"`
	IndicatorThreshold float64   `yaml:"indicator_threshold"`
	MonitorThreshold   float64   `yaml:"monitor_threshold"`
	MonitorIndex       int       `yaml:"monitor_index"`
	InitialMode        string    `yaml:"initial_mode"`
	StiffSolver        string    `yaml:"stiff_solver"`
	NonStiffSolver     string    `yaml:"nonstiff_solver"`
	FindTimescale      bool      `yaml:"find_timescale"`
	TimescaleLength    float64   `yaml:"timescale_length"`
	Params             []float64 `yaml:"params,omitempty"`
	InitState          []float64 `yaml:"init_state,omitempty"`

	Index    stiffness.IndexParams `yaml:"index"`
	CSP      CSPConfig             `yaml:"csp"`
	Ensemble EnsembleConfig        `yaml:"ensemble"`
}

type CSPConfig struct {
	EpsA float64 `yaml:"eps_a"`
	EpsR float64 `yaml:"eps_r"`
	// Eps overrides the model stiffness factor of csp_test when nonzero.
	Eps float64 `yaml:"eps,omitempty"`
}

type EnsembleConfig struct {
	Paths      []string `yaml:"paths,omitempty"`
	Workers    int      `yaml:"workers"`
	InertIndex int      `yaml:"inert_index"`
	KeepInert  bool     `yaml:"keep_inert"`
	// SampleStep is the accepted step (1-based) whose metric and cost are
	// recorded.
	SampleStep int `yaml:"sample_step"`
	// Steps is the number of dt steps each job integrates.
	Steps int `yaml:"steps"`
}

func DefaultConfig() *Config {
	tol := csp.DefaultTolerances()
	return &Config{
		Equation:           "autoignition",
		Metric:             string(stiffness.MetricIndicator),
		Dt:                 DefaultDt,
		TStop:              DefaultTStop,
		AbsTol:             DefaultAbsTol,
		RelTol:             DefaultRelTol,
		UseJacobian:        true,
		IndicatorThreshold: DefaultIndicatorThreshold,
		MonitorThreshold:   DefaultMonitorThreshold,
		InitialMode:        controller.Stiff.String(),
		StiffSolver:        "bdf",
		NonStiffSolver:     "dopri5",
		TimescaleLength:    DefaultTimescaleLength,
		Index:              stiffness.DefaultIndexParams(),
		CSP:                CSPConfig{EpsA: tol.EpsA, EpsR: tol.EpsR},
		Ensemble: EnsembleConfig{
			InertIndex: -1,
			SampleStep: DefaultSampleStep,
			Steps:      5,
		},
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
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks every field that does not depend on the equation.
func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %g: %w", c.Dt, dynamo.ErrParameterBounds)
	}
	if c.TStop <= c.TStart {
		return fmt.Errorf("t_stop %g must be after t_start %g: %w", c.TStop, c.TStart, dynamo.ErrParameterBounds)
	}
	if c.AbsTol < 0 || c.RelTol < 0 {
		return fmt.Errorf("tolerances must be non-negative: %w", dynamo.ErrParameterBounds)
	}
	if _, err := stiffness.ParseMetric(c.Metric); err != nil {
		return err
	}
	if _, err := controller.ParseMode(c.InitialMode); err != nil {
		return err
	}
	if _, err := integrators.Lookup(c.StiffSolver); err != nil {
		return err
	}
	if _, err := integrators.Lookup(c.NonStiffSolver); err != nil {
		return err
	}
	if c.Ensemble.SampleStep < 1 {
		return fmt.Errorf("ensemble sample_step %d: %w", c.Ensemble.SampleStep, dynamo.ErrParameterBounds)
	}
	return nil
}

func (c *Config) Tolerances() integrators.Tolerances {
	return integrators.Tolerances{
		Abs:         c.AbsTol,
		Rel:         c.RelTol,
		UseJacobian: c.UseJacobian,
	}
}

func (c *Config) Policy() controller.Policy {
	return controller.Policy{
		IndicatorThreshold: c.IndicatorThreshold,
		MonitorThreshold:   c.MonitorThreshold,
		MonitorIndex:       c.MonitorIndex,
	}
}

func (c *Config) CSPTolerances() csp.Tolerances {
	return csp.Tolerances{EpsA: c.CSP.EpsA, EpsR: c.CSP.EpsR}
}
