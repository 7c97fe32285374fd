package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/stiffsim/internal/config"
	"github.com/san-kum/stiffsim/internal/dynamo"
	"github.com/san-kum/stiffsim/internal/integrators"
	"github.com/san-kum/stiffsim/internal/physics"
	"github.com/san-kum/stiffsim/internal/stiffness"
)

// Model is a provider that also knows its defaults and named constants.
type Model interface {
	dynamo.Provider
	dynamo.Named
	DefaultState() dynamo.State
	DefaultParams() dynamo.Params
	GetParams() map[string]float64
	SetParam(name string, value float64)
}

type Registry struct {
	models map[string]func(*config.Config) Model
}

func NewRegistry() *Registry {
	r := &Registry{
		models: make(map[string]func(*config.Config) Model),
	}

	r.models["vdp"] = func(*config.Config) Model { return physics.NewVanDerPol() }
	r.models["lorenz"] = func(*config.Config) Model { return physics.NewLorenz() }
	r.models["autoignition"] = func(cfg *config.Config) Model {
		a := physics.NewAutoignition()
		// a fifth component carries the inert species
		a.Inert = len(cfg.InitState) == 5 || (cfg.Ensemble.InertIndex >= 0 && cfg.Ensemble.KeepInert)
		return a
	}
	r.models["csp_test"] = func(cfg *config.Config) Model {
		m := physics.NewCSPTest()
		if n := len(cfg.InitState); n >= 2 {
			m.N = n
		}
		if cfg.CSP.Eps != 0 {
			m.Eps = cfg.CSP.Eps
		}
		return m
	}

	return r
}

func (r *Registry) GetModel(name string, cfg *config.Config) (Model, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown equation: %s", name)
	}
	return fn(cfg), nil
}

func (r *Registry) ListModels() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListSolvers() []string {
	return integrators.Names()
}

func (r *Registry) ListMetrics() []string {
	ms := stiffness.Metrics()
	names := make([]string, len(ms))
	for i, m := range ms {
		names[i] = string(m)
	}
	return names
}
