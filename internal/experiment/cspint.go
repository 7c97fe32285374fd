package experiment

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/stiffsim/internal/csp"
	"github.com/san-kum/stiffsim/internal/dynamo"
	"github.com/san-kum/stiffsim/internal/integrators"
)

type CSPStep struct {
	Step      int
	Time      float64
	State     dynamo.State
	M         int
	TauM1     float64
	Stiffness float64
}

type CSPRun struct {
	Steps []CSPStep
}

// Analyze runs the CSP analysis on the initial state.
func (e *Experiment) Analyze() (*csp.Projection, error) {
	return csp.Analyze(e.Model, e.cfg.TStart, e.Y0, e.Params, e.cfg.CSPTolerances())
}

// IntegrateCSP advances on the slow manifold: each step refreshes the CSP
// basis, takes an RK4 step of Qs·g and subtracts the radical correction
// Rc·g at the new state.
func (e *Experiment) IntegrateCSP(ctx context.Context) (*CSPRun, error) {
	tol := e.cfg.CSPTolerances()
	n := int(math.Round((e.cfg.TStop - e.cfg.TStart) / e.cfg.Dt))
	run := &CSPRun{Steps: make([]CSPStep, 0, n+1)}

	t, y := e.cfg.TStart, e.Y0.Clone()
	var buf integrators.RK4
	for i := 0; ; i++ {
		proj, err := csp.Analyze(e.Model, t, y, e.Params, tol)
		if err != nil {
			return run, &dynamo.StepError{Step: i, Time: t, State: y, Wrapped: err}
		}
		run.Steps = append(run.Steps, CSPStep{
			Step:      i,
			Time:      t,
			State:     y.Clone(),
			M:         proj.M,
			TauM1:     proj.TauM1,
			Stiffness: proj.Stiffness,
		})
		if i == n {
			break
		}
		if err := ctx.Err(); err != nil {
			return run, fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, err)
		}

		slow := csp.NewProjected(e.Model, proj.Qs)
		next := integrators.Step(slow, y, e.Params, t, e.cfg.Dt, &buf)
		t += e.cfg.Dt
		next = next.Sub(csp.RadicalCorrection(e.Model, t, next, e.Params, proj.Rc))
		if !next.IsValid() {
			return run, &dynamo.StepError{Step: i + 1, Time: t, State: y, Wrapped: dynamo.ErrInvalidState}
		}
		y = next
	}
	e.log.Debug("csp integration complete", "steps", n, "final_m", run.Steps[len(run.Steps)-1].M)
	return run, nil
}
