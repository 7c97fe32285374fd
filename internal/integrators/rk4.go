package integrators

import (
	"github.com/san-kum/stiffsim/internal/dynamo"
)

// RK4 is the classical fixed-step Runge-Kutta method. Each Advance call
// takes exactly one step.
type RK4 struct {
	core
	k1, k2, k3, k4 dynamo.State
	scratch        dynamo.State
}

func NewRK4(prov dynamo.Provider, tol Tolerances) Solver {
	return &RK4{core: newCore(prov, tol)}
}

func (r *RK4) Name() string { return "rk4" }

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(dynamo.State, n)
		r.k2 = make(dynamo.State, n)
		r.k3 = make(dynamo.State, n)
		r.k4 = make(dynamo.State, n)
		r.scratch = make(dynamo.State, n)
	}
}

func (r *RK4) Advance(dt float64) (float64, dynamo.State, error) {
	if err := r.begin(dt); err != nil {
		return r.t, r.y.Clone(), err
	}
	next := Step(r.fn, r.y, r.params, r.t, dt, r)
	if !next.IsValid() {
		return r.fail(dynamo.ErrInvalidState)
	}
	r.t += dt
	r.y = next
	r.steps++
	return r.t, r.y.Clone(), nil
}

// Step takes one RK4 step of prov from (t, x). buf may be nil.
func Step(prov dynamo.Provider, x dynamo.State, p dynamo.Params, t, dt float64, buf *RK4) dynamo.State {
	n := len(x)
	if buf == nil {
		buf = &RK4{}
	}
	buf.ensureScratch(n)

	copy(buf.k1, prov.Derive(t, x, p))

	for i := 0; i < n; i++ {
		buf.scratch[i] = x[i] + dt*0.5*buf.k1[i]
	}
	copy(buf.k2, prov.Derive(t+dt*0.5, buf.scratch, p))

	for i := 0; i < n; i++ {
		buf.scratch[i] = x[i] + dt*0.5*buf.k2[i]
	}
	copy(buf.k3, prov.Derive(t+dt*0.5, buf.scratch, p))

	for i := 0; i < n; i++ {
		buf.scratch[i] = x[i] + dt*buf.k3[i]
	}
	copy(buf.k4, prov.Derive(t+dt, buf.scratch, p))

	result := make(dynamo.State, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt6*(buf.k1[i]+2*buf.k2[i]+2*buf.k3[i]+buf.k4[i])
	}
	return result
}
