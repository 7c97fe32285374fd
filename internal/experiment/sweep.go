package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/san-kum/stiffsim/internal/controller"
	"github.com/san-kum/stiffsim/internal/dynamo"
	"github.com/san-kum/stiffsim/internal/ensemble"
	"github.com/san-kum/stiffsim/internal/integrators"
	"github.com/san-kum/stiffsim/internal/pasr"
	"github.com/san-kum/stiffsim/internal/stiffness"
)

// Point selects one particle of one PaSR timestep.
type Point struct {
	Timestep int
	Particle int
}

// EnsembleRow is the metric and integration cost at the sample step of
// one PaSR point.
type EnsembleRow struct {
	Point
	Metric float64
	Wall   time.Duration
	Work   int
	Mode   controller.Mode
	Err    error
}

// Points lists every (timestep, particle) pair present in d.
func Points(d *pasr.Data) []Point {
	pts := make([]Point, 0, d.Len())
	for _, rec := range d.Records {
		pts = append(pts, Point{Timestep: rec.Timestep, Particle: rec.Particle})
	}
	return pts
}

// Ensemble integrates each point for Ensemble.Steps steps of Dt on the
// worker pool. Rows are returned in point order; a failed point carries
// its error and does not stop the others.
func (e *Experiment) Ensemble(ctx context.Context, d *pasr.Data, pts []Point) ([]EnsembleRow, error) {
	ec := e.cfg.Ensemble
	if ec.Steps <= 0 {
		return nil, fmt.Errorf("ensemble steps %d: %w", ec.Steps, dynamo.ErrParameterBounds)
	}
	if ec.SampleStep < 1 || ec.SampleStep > ec.Steps {
		return nil, fmt.Errorf("sample step %d beyond %d steps: %w", ec.SampleStep, ec.Steps, dynamo.ErrParameterBounds)
	}

	outs, err := ensemble.Run(ctx, pts, ensemble.Options{Workers: ec.Workers, Metrics: e.metrics},
		func(ctx context.Context, pt Point) (EnsembleRow, error) {
			return e.point(ctx, d, pt)
		})

	rows := make([]EnsembleRow, len(outs))
	for i, o := range outs {
		rows[i] = o.Value
		rows[i].Point = pts[i]
		switch {
		case o.Skipped:
			rows[i].Err = dynamo.ErrContextCanceled
		case o.Err != nil:
			rows[i].Err = o.Err
		}
	}
	if errs := ensemble.Errors(outs); len(errs) > 0 {
		e.log.Warn("ensemble points failed", "failed", len(errs), "total", len(pts))
	}
	return rows, err
}

func (e *Experiment) point(ctx context.Context, d *pasr.Data, pt Point) (EnsembleRow, error) {
	row := EnsembleRow{Point: pt}
	rec, err := d.At(pt.Timestep, pt.Particle)
	if err != nil {
		return row, err
	}
	y0, p, err := pasr.Rearrange(rec, e.cfg.Ensemble.InertIndex, e.cfg.Ensemble.KeepInert)
	if err != nil {
		return row, err
	}

	ec := e.cfg.Ensemble
	ccfg, err := e.controllerConfig(y0, 0, float64(ec.Steps)*e.cfg.Dt)
	if err != nil {
		return row, err
	}
	stiff, nonStiff, err := e.families()
	if err != nil {
		return row, err
	}
	log := e.log.With("timestep", pt.Timestep, "particle", pt.Particle)
	ctrl, err := controller.New(e.Model, p, stiff, nonStiff, ccfg,
		controller.WithLogger(log), controller.WithMetrics(e.metrics))
	if err != nil {
		return row, err
	}
	res, err := ctrl.Run(ctx)
	if err != nil {
		return row, err
	}

	// index 0 is the initial state, so index k is the k-th accepted step
	k := ec.SampleStep
	row.Wall = res.WallTimes[k]
	row.Work = res.Work[k]
	row.Mode = res.Modes[k]
	if e.Metric.Pointwise() {
		row.Metric, err = e.Metric.At(e.Model, res.Times[k], res.States[k], p)
		return row, err
	}
	vals, err := stiffness.Evaluate(e.Metric, res.Times, res.States, e.Model, p, stiffness.WithParams(e.cfg.Index))
	if err != nil {
		return row, err
	}
	row.Metric = vals[k]
	return row, nil
}

func (e *Experiment) families() (stiff, nonStiff integrators.Factory, err error) {
	if stiff, err = integrators.Lookup(e.cfg.StiffSolver); err != nil {
		return nil, nil, err
	}
	if nonStiff, err = integrators.Lookup(e.cfg.NonStiffSolver); err != nil {
		return nil, nil, err
	}
	return stiff, nonStiff, nil
}

func (e *Experiment) controllerConfig(y0 dynamo.State, tStart, tStop float64) (controller.Config, error) {
	mode, err := controller.ParseMode(e.cfg.InitialMode)
	if err != nil {
		return controller.Config{}, err
	}
	return controller.Config{
		Dt:          e.cfg.Dt,
		TStart:      tStart,
		TStop:       tStop,
		Y0:          y0,
		InitialMode: mode,
		Policy:      e.cfg.Policy(),
		Tolerances:  e.cfg.Tolerances(),
	}, nil
}
