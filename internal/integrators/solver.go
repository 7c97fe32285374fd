package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/stiffsim/internal/dynamo"
)

// Tolerances configure a solver instance.
type Tolerances struct {
	Abs float64
	Rel float64
	// UseJacobian selects the provider's analytic Jacobian in implicit
	// solvers; otherwise a finite-difference Jacobian is formed.
	UseJacobian bool
	// MaxSteps bounds the internal steps of one Advance call.
	MaxSteps int
}

func DefaultTolerances() Tolerances {
	return Tolerances{
		Abs:         1e-8,
		Rel:         1e-6,
		UseJacobian: true,
		MaxSteps:    50000,
	}
}

// Stats counts the work a solver instance has done since construction.
type Stats struct {
	Steps         int
	Rejected      int
	Evaluations   int
	JacobianEvals int
}

// Work is the total number of right-hand-side and Jacobian evaluations.
func (s Stats) Work() int { return s.Evaluations + s.JacobianEvals }

// Solver advances y' = f(t, y; p) by caller-chosen intervals. Step-size
// control inside an interval is the solver's own business.
type Solver interface {
	Name() string
	SetInitialValue(y0 dynamo.State, t0 float64) error
	SetParams(p dynamo.Params)
	// Advance integrates from the current time to t+dt and returns the new
	// time and state.
	Advance(dt float64) (float64, dynamo.State, error)
	Successful() bool
	Time() float64
	State() dynamo.State
	Stats() Stats
}

// Factory builds a fresh solver around prov.
type Factory func(prov dynamo.Provider, tol Tolerances) Solver

// core carries the state shared by every solver family.
type core struct {
	fn       *dynamo.Counter
	tol      Tolerances
	t        float64
	y        dynamo.State
	params   dynamo.Params
	ok       bool
	ready    bool
	steps    int
	rejected int
}

func newCore(prov dynamo.Provider, tol Tolerances) core {
	if tol.MaxSteps <= 0 {
		tol.MaxSteps = DefaultTolerances().MaxSteps
	}
	return core{fn: dynamo.NewCounter(prov), tol: tol}
}

func (c *core) SetInitialValue(y0 dynamo.State, t0 float64) error {
	if err := dynamo.CheckDim(c.fn.Provider, y0); err != nil {
		return err
	}
	if !y0.IsValid() {
		return dynamo.ErrInvalidState
	}
	c.y = y0.Clone()
	c.t = t0
	c.ok = true
	c.ready = true
	return nil
}

func (c *core) SetParams(p dynamo.Params) { c.params = p.Clone() }
func (c *core) Successful() bool          { return c.ok }
func (c *core) Time() float64             { return c.t }
func (c *core) State() dynamo.State       { return c.y.Clone() }

func (c *core) Stats() Stats {
	return Stats{
		Steps:         c.steps,
		Rejected:      c.rejected,
		Evaluations:   c.fn.Derivs,
		JacobianEvals: c.fn.Jacobians,
	}
}

func (c *core) begin(dt float64) error {
	if !c.ready {
		return fmt.Errorf("no initial value: %w", dynamo.ErrInvalidState)
	}
	if dt <= 0 || math.IsNaN(dt) {
		return fmt.Errorf("interval %g: %w", dt, dynamo.ErrParameterBounds)
	}
	return nil
}

func (c *core) fail(cause error) (float64, dynamo.State, error) {
	c.ok = false
	return c.t, c.y.Clone(), fmt.Errorf("%w at t=%g: %w", dynamo.ErrSolverFailed, c.t, cause)
}

// errNorm is the RMS of err scaled by Abs + Rel·max(|y0|, |y1|).
func (c *core) errNorm(err, y0, y1 dynamo.State) float64 {
	sum := 0.0
	for i := range err {
		sc := c.tol.Abs + c.tol.Rel*math.Max(math.Abs(y0[i]), math.Abs(y1[i]))
		e := err[i] / sc
		sum += e * e
	}
	return math.Sqrt(sum / float64(len(err)))
}

// reached reports whether t has arrived at target within rounding.
func reached(t, target float64) bool {
	return target-t <= 1e-12*math.Max(1, math.Abs(target))
}

func minStep(t float64) float64 {
	return 1e-14 * math.Max(1, math.Abs(t))
}
