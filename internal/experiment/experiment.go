package experiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/stiffsim/internal/config"
	"github.com/san-kum/stiffsim/internal/controller"
	"github.com/san-kum/stiffsim/internal/dynamo"
	"github.com/san-kum/stiffsim/internal/stiffness"
	"github.com/san-kum/stiffsim/internal/telemetry"
)

// Experiment is a validated configuration bound to its model, initial
// state and parameters.
type Experiment struct {
	cfg    *config.Config
	Model  Model
	Y0     dynamo.State
	Params dynamo.Params
	Metric stiffness.Metric

	log      *slog.Logger
	metrics  *telemetry.Metrics
	ctrlOpts []controller.Option
}

type Option func(*Experiment)

func WithLogger(l *slog.Logger) Option          { return func(e *Experiment) { e.log = l } }
func WithMetrics(m *telemetry.Metrics) Option   { return func(e *Experiment) { e.metrics = m } }
func WithObserver(o controller.Observer) Option { return func(e *Experiment) { e.ctrlOpts = append(e.ctrlOpts, controller.WithObserver(o)) } }

func Build(cfg *config.Config, opts ...Option) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	model, err := NewRegistry().GetModel(cfg.Equation, cfg)
	if err != nil {
		return nil, err
	}
	metric, err := stiffness.ParseMetric(cfg.Metric)
	if err != nil {
		return nil, err
	}

	y0 := dynamo.State(cfg.InitState).Clone()
	if len(y0) == 0 {
		y0 = model.DefaultState()
	}
	params := dynamo.Params(cfg.Params).Clone()
	if len(params) == 0 {
		params = model.DefaultParams()
	}
	if err := dynamo.CheckDim(model, y0); err != nil {
		return nil, fmt.Errorf("%s initial state: %w", cfg.Equation, err)
	}

	e := &Experiment{
		cfg:    cfg,
		Model:  model,
		Y0:     y0,
		Params: params,
		Metric: metric,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// Controller builds an adaptive controller over the configured span for
// the initial condition y0 and params p.
func (e *Experiment) Controller(y0 dynamo.State, p dynamo.Params, extra ...controller.Option) (*controller.Controller, error) {
	stiff, nonStiff, err := e.families()
	if err != nil {
		return nil, err
	}
	ccfg, err := e.controllerConfig(y0, e.cfg.TStart, e.cfg.TStop)
	if err != nil {
		return nil, err
	}
	opts := []controller.Option{
		controller.WithLogger(e.log),
		controller.WithMetrics(e.metrics),
	}
	opts = append(opts, e.ctrlOpts...)
	opts = append(opts, extra...)
	return controller.New(e.Model, p, stiff, nonStiff, ccfg, opts...)
}

// RunResult is an adaptive run plus the configured metric evaluated along
// the accepted trajectory.
type RunResult struct {
	*controller.Result
	Metric     stiffness.Metric
	Values     []float64
	Timescales []float64
	// Err is the solver failure that cut the run short, if any.
	Err error
}

// Run integrates the configured problem adaptively. A solver failure or a
// cancellation is reported in RunResult.Err together with the partial
// trajectory; cancellation is also returned as the error.
func (e *Experiment) Run(ctx context.Context) (*RunResult, error) {
	ctrl, err := e.Controller(e.Y0, e.Params)
	if err != nil {
		return nil, err
	}
	res, runErr := ctrl.Run(ctx)
	out := &RunResult{Result: res, Metric: e.Metric, Err: runErr}
	if runErr != nil {
		e.log.Warn("run ended early", "t", ctrl.Time(), "err", runErr)
	}

	out.Values, err = e.evaluate(res.Times, res.States)
	if err != nil {
		return out, err
	}
	if ctx.Err() != nil {
		return out, runErr
	}
	if e.cfg.FindTimescale && e.Metric == stiffness.MetricIndicator {
		out.Timescales = stiffness.RefTimescales(out.Values, e.cfg.TimescaleLength)
	}
	return out, nil
}

func (e *Experiment) evaluate(times []float64, states []dynamo.State) ([]float64, error) {
	if e.Metric == stiffness.MetricIndex && len(states) < 4 {
		e.log.Warn("trajectory too short for stiffness index", "samples", len(states))
		return nil, nil
	}
	return stiffness.Evaluate(e.Metric, times, states, e.Model, e.Params,
		stiffness.WithParams(e.cfg.Index))
}
