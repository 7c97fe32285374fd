package experiment

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/san-kum/stiffsim/internal/dynamo"
	"github.com/san-kum/stiffsim/internal/ensemble"
	"github.com/san-kum/stiffsim/internal/integrators"
	"github.com/san-kum/stiffsim/internal/stiffness"
)

// CompareRow pairs the pointwise stiffness metrics of one accepted state
// with the cost of the step that produced it.
type CompareRow struct {
	Step      int
	Time      float64
	State     dynamo.State
	Ratio     float64
	Indicator float64
	CEMA      float64
	Wall      time.Duration
	Work      int
}

// Comparison is a single-solver run over the configured span.
type Comparison struct {
	Solver string
	Rows   []CompareRow
	// Err is the failure that ended the run early, if any.
	Err error
}

// Compare integrates with one solver and no switching, recording every
// pointwise metric against per-step integration time.
func (e *Experiment) Compare(ctx context.Context, solver string) (*Comparison, error) {
	factory, err := integrators.Lookup(solver)
	if err != nil {
		return nil, err
	}
	s := factory(e.Model, e.cfg.Tolerances())
	s.SetParams(e.Params)
	if err := s.SetInitialValue(e.Y0, e.cfg.TStart); err != nil {
		return nil, err
	}

	n := int(math.Round((e.cfg.TStop - e.cfg.TStart) / e.cfg.Dt))
	cmp := &Comparison{Solver: s.Name(), Rows: make([]CompareRow, 0, n+1)}

	row, err := e.compareRow(0, e.cfg.TStart, e.Y0)
	if err != nil {
		return nil, err
	}
	cmp.Rows = append(cmp.Rows, row)

	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return cmp, fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, err)
		}
		before := s.Stats().Work()
		start := time.Now()
		t, y, err := s.Advance(e.cfg.Dt)
		wall := time.Since(start)
		if err != nil {
			e.metrics.SolverFailure(s.Name())
			cmp.Err = &dynamo.StepError{Step: i, Time: s.Time(), State: s.State(), Wrapped: err}
			e.log.Warn("comparison run ended early", "solver", s.Name(), "step", i, "err", err)
			return cmp, nil
		}
		row, err := e.compareRow(i, t, y)
		if err != nil {
			return cmp, err
		}
		row.Wall = wall
		row.Work = s.Stats().Work() - before
		cmp.Rows = append(cmp.Rows, row)
	}
	return cmp, nil
}

func (e *Experiment) compareRow(step int, t float64, y dynamo.State) (CompareRow, error) {
	jac := e.Model.Jacobian(t, y, e.Params)
	ratio, err := stiffness.Ratio(jac)
	if err != nil {
		return CompareRow{}, fmt.Errorf("ratio at step %d: %w", step, err)
	}
	ind, err := stiffness.Indicator(jac)
	if err != nil {
		return CompareRow{}, fmt.Errorf("indicator at step %d: %w", step, err)
	}
	cema, err := stiffness.CEMAValue(jac)
	if err != nil {
		return CompareRow{}, fmt.Errorf("cema at step %d: %w", step, err)
	}
	return CompareRow{
		Step:      step,
		Time:      t,
		State:     y.Clone(),
		Ratio:     ratio,
		Indicator: ind,
		CEMA:      cema,
	}, nil
}

// CompareAll runs Compare for each solver concurrently. Results are in
// solver order; a nil entry marks a solver that could not start.
func (e *Experiment) CompareAll(ctx context.Context, solvers []string, workers int) ([]*Comparison, error) {
	outs, err := ensemble.Run(ctx, solvers, ensemble.Options{Workers: workers, Metrics: e.metrics},
		func(ctx context.Context, name string) (*Comparison, error) {
			return e.Compare(ctx, name)
		})
	res := make([]*Comparison, len(outs))
	for i, o := range outs {
		if o.Err != nil {
			e.log.Error("comparison failed", "solver", solvers[i], "err", o.Err)
			continue
		}
		res[i] = o.Value
	}
	return res, err
}
