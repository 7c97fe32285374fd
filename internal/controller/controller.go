package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/san-kum/stiffsim/internal/dynamo"
	"github.com/san-kum/stiffsim/internal/integrators"
	"github.com/san-kum/stiffsim/internal/stiffness"
	"github.com/san-kum/stiffsim/internal/telemetry"
)

type Config struct {
	Dt          float64
	TStart      float64
	TStop       float64
	Y0          dynamo.State
	InitialMode Mode
	Policy      Policy
	Tolerances  integrators.Tolerances
}

// Steps is round((TStop - TStart) / Dt).
func (c Config) Steps() int {
	return int(math.Round((c.TStop - c.TStart) / c.Dt))
}

func (c Config) validate(prov dynamo.Provider) error {
	if c.Dt <= 0 || math.IsNaN(c.Dt) {
		return fmt.Errorf("dt %g: %w", c.Dt, dynamo.ErrParameterBounds)
	}
	if !(c.TStop > c.TStart) {
		return fmt.Errorf("t_stop %g not after t_start %g: %w", c.TStop, c.TStart, dynamo.ErrParameterBounds)
	}
	if err := dynamo.CheckDim(prov, c.Y0); err != nil {
		return err
	}
	if !c.Y0.IsValid() {
		return dynamo.ErrInvalidState
	}
	if c.Policy.MonitorIndex < 0 || c.Policy.MonitorIndex >= len(c.Y0) {
		return fmt.Errorf("monitor index %d for %d components: %w",
			c.Policy.MonitorIndex, len(c.Y0), dynamo.ErrDimensionMismatch)
	}
	if c.InitialMode != Stiff && c.InitialMode != NonStiff {
		return fmt.Errorf("initial mode %v: %w", c.InitialMode, dynamo.ErrParameterBounds)
	}
	return nil
}

// Probe evaluates the switching signals on an accepted state.
type Probe func(t float64, y dynamo.State) (indicator, monitor float64, err error)

// Observer is notified after every accepted step.
type Observer interface {
	OnStep(s Sample)
}

type Option func(*Controller)

func WithLogger(l *slog.Logger) Option        { return func(c *Controller) { c.log = l } }
func WithMetrics(m *telemetry.Metrics) Option { return func(c *Controller) { c.metrics = m } }
func WithProbe(p Probe) Option                { return func(c *Controller) { c.probe = p } }
func WithObserver(o Observer) Option          { return func(c *Controller) { c.observers = append(c.observers, o) } }

// Sample is one accepted step.
type Sample struct {
	Step      int
	Time      float64
	State     dynamo.State
	Indicator float64
	Monitor   float64
	// Mode is the family that produced this state.
	Mode     Mode
	Next     Mode
	Solver   string
	Wall     time.Duration
	Work     int
	Switched bool
}

type Switch struct {
	Step      int
	Time      float64
	From      Mode
	To        Mode
	Indicator float64
	Monitor   float64
}

// Result holds one row per accepted step; index 0 is the initial state.
type Result struct {
	Times      []float64
	States     []dynamo.State
	Indicators []float64
	Monitors   []float64
	Modes      []Mode
	WallTimes  []time.Duration
	Work       []int
	Switches   []Switch
}

func (r *Result) append(s Sample) {
	r.Times = append(r.Times, s.Time)
	r.States = append(r.States, s.State.Clone())
	r.Indicators = append(r.Indicators, s.Indicator)
	r.Monitors = append(r.Monitors, s.Monitor)
	r.Modes = append(r.Modes, s.Mode)
	r.WallTimes = append(r.WallTimes, s.Wall)
	r.Work = append(r.Work, s.Work)
}

// Len is the number of recorded samples.
func (r *Result) Len() int { return len(r.Times) }

// TotalWork sums the evaluation counts over all steps.
func (r *Result) TotalWork() int {
	n := 0
	for _, w := range r.Work {
		n += w
	}
	return n
}

// TotalWall sums the per-step integration wall time.
func (r *Result) TotalWall() time.Duration {
	var d time.Duration
	for _, w := range r.WallTimes {
		d += w
	}
	return d
}

type Controller struct {
	prov     dynamo.Provider
	params   dynamo.Params
	cfg      Config
	families map[Mode]integrators.Factory

	mode   Mode
	solver integrators.Solver
	t      float64
	y      dynamo.State
	step   int

	log       *slog.Logger
	metrics   *telemetry.Metrics
	probe     Probe
	observers []Observer
}

func New(prov dynamo.Provider, params dynamo.Params, stiff, nonStiff integrators.Factory, cfg Config, opts ...Option) (*Controller, error) {
	if stiff == nil || nonStiff == nil {
		return nil, fmt.Errorf("both solver families are required: %w", dynamo.ErrParameterBounds)
	}
	if err := cfg.validate(prov); err != nil {
		return nil, err
	}
	c := &Controller{
		prov:     prov,
		params:   params.Clone(),
		cfg:      cfg,
		families: map[Mode]integrators.Factory{Stiff: stiff, NonStiff: nonStiff},
		mode:     cfg.InitialMode,
		t:        cfg.TStart,
		y:        cfg.Y0.Clone(),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.probe == nil {
		c.probe = c.defaultProbe
	}
	if err := c.install(c.mode); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Controller) defaultProbe(t float64, y dynamo.State) (float64, float64, error) {
	ind, err := stiffness.IndicatorAt(c.prov, t, y, c.params)
	if err != nil {
		return 0, 0, err
	}
	return ind, y[c.cfg.Policy.MonitorIndex], nil
}

// install replaces the active solver with a fresh one of family m seeded
// at the current (t, y).
func (c *Controller) install(m Mode) error {
	s := c.families[m](c.prov, c.cfg.Tolerances)
	s.SetParams(c.params)
	if err := s.SetInitialValue(c.y, c.t); err != nil {
		return fmt.Errorf("seed %s solver: %w", m, err)
	}
	c.mode = m
	c.solver = s
	return nil
}

func (c *Controller) Mode() Mode          { return c.mode }
func (c *Controller) Time() float64       { return c.t }
func (c *Controller) State() dynamo.State { return c.y.Clone() }
func (c *Controller) Solver() string      { return c.solver.Name() }

// Initial evaluates the probe on the starting state.
func (c *Controller) Initial() (Sample, error) {
	ind, mon, err := c.probe(c.t, c.y)
	if err != nil {
		return Sample{}, fmt.Errorf("probe at t=%g: %w", c.t, err)
	}
	return Sample{
		Time:      c.t,
		State:     c.y.Clone(),
		Indicator: ind,
		Monitor:   mon,
		Mode:      c.mode,
		Next:      c.mode,
		Solver:    c.solver.Name(),
	}, nil
}

// Step advances one accepted step of Dt and applies the switching policy.
// When the step was accepted but evaluating it failed, the returned sample
// still carries the accepted state (Step > 0) with NaN indicator and
// monitor, alongside the error.
func (c *Controller) Step(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, err)
	}

	solver := c.solver.Name()
	if !c.solver.Successful() {
		return Sample{}, &dynamo.StepError{Step: c.step + 1, Time: c.t, State: c.y.Clone(),
			Wrapped: fmt.Errorf("%w: %s left unsuccessful", dynamo.ErrSolverFailed, solver)}
	}
	before := c.solver.Stats().Work()
	start := time.Now()
	t, y, err := c.solver.Advance(c.cfg.Dt)
	wall := time.Since(start)
	work := c.solver.Stats().Work() - before

	if err == nil && !y.IsValid() {
		err = dynamo.ErrInvalidState
	}
	if err != nil {
		if !errors.Is(err, dynamo.ErrSolverFailed) {
			err = fmt.Errorf("%w: %w", dynamo.ErrSolverFailed, err)
		}
		c.metrics.SolverFailure(solver)
		c.log.Error("solver failed", "solver", solver, "step", c.step+1, "t", c.t, "err", err)
		return Sample{}, &dynamo.StepError{Step: c.step + 1, Time: c.t, State: c.y.Clone(), Wrapped: err}
	}

	c.step++
	c.t, c.y = t, y
	c.metrics.ObserveStep(c.mode.String(), solver, wall, work)

	s := Sample{
		Step:   c.step,
		Time:   t,
		State:  y.Clone(),
		Mode:   c.mode,
		Next:   c.mode,
		Solver: solver,
		Wall:   wall,
		Work:   work,
	}

	ind, mon, err := c.probe(t, y)
	if err != nil {
		s.Indicator, s.Monitor = math.NaN(), math.NaN()
		return s, &dynamo.StepError{Step: c.step, Time: t, State: y.Clone(), Wrapped: err}
	}
	s.Indicator, s.Monitor = ind, mon

	next := c.cfg.Policy.Next(c.mode, ind, mon)
	if next != c.mode {
		from := c.mode
		if err := c.install(next); err != nil {
			return s, &dynamo.StepError{Step: c.step, Time: t, State: y.Clone(), Wrapped: err}
		}
		s.Switched = true
		c.metrics.Switch(from.String(), next.String())
		c.log.Info("mode switch",
			"from", from, "to", next, "t", t,
			"indicator", ind, "monitor", mon,
			"reason", c.cfg.Policy.Reason(from, ind, mon))
	}
	s.Next = c.mode

	for _, o := range c.observers {
		o.OnStep(s)
	}
	return s, nil
}

// Run integrates from TStart to TStop. On failure the partial result up to
// the last accepted step is returned with the error.
func (c *Controller) Run(ctx context.Context) (*Result, error) {
	n := c.cfg.Steps()
	res := &Result{
		Times:      make([]float64, 0, n+1),
		States:     make([]dynamo.State, 0, n+1),
		Indicators: make([]float64, 0, n+1),
		Monitors:   make([]float64, 0, n+1),
		Modes:      make([]Mode, 0, n+1),
		WallTimes:  make([]time.Duration, 0, n+1),
		Work:       make([]int, 0, n+1),
	}

	first, err := c.Initial()
	if err != nil {
		return res, err
	}
	res.append(first)

	for i := 0; i < n; i++ {
		s, err := c.Step(ctx)
		if err != nil {
			if s.Step > 0 {
				res.append(s)
			}
			return res, err
		}
		res.append(s)
		if s.Switched {
			res.Switches = append(res.Switches, Switch{
				Step: s.Step, Time: s.Time, From: s.Mode, To: s.Next,
				Indicator: s.Indicator, Monitor: s.Monitor,
			})
		}
	}
	c.log.Debug("run complete", "steps", n, "switches", len(res.Switches), "work", res.TotalWork())
	return res, nil
}
