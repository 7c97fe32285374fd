package integrators

import "github.com/san-kum/stiffsim/internal/dynamo"

// Euler is the explicit first-order method, one step per Advance.
type Euler struct {
	core
}

func NewEuler(prov dynamo.Provider, tol Tolerances) Solver {
	return &Euler{core: newCore(prov, tol)}
}

func (e *Euler) Name() string { return "euler" }

func (e *Euler) Advance(dt float64) (float64, dynamo.State, error) {
	if err := e.begin(dt); err != nil {
		return e.t, e.y.Clone(), err
	}
	dx := e.fn.Derive(e.t, e.y, e.params)
	result := make(dynamo.State, len(e.y))
	for i := range e.y {
		result[i] = e.y[i] + dt*dx[i]
	}
	if !result.IsValid() {
		return e.fail(dynamo.ErrInvalidState)
	}
	e.t += dt
	e.y = result
	e.steps++
	return e.t, e.y.Clone(), nil
}
