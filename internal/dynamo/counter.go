package dynamo

import "gonum.org/v1/gonum/mat"

// Counter wraps a Provider and counts right-hand-side and Jacobian
// evaluations. Each solver instance owns its counter, so the work of one
// accepted step is the difference of two snapshots.
type Counter struct {
	Provider
	Derivs    int
	Jacobians int
}

func NewCounter(p Provider) *Counter {
	return &Counter{Provider: p}
}

func (c *Counter) Derive(t float64, y State, p Params) State {
	c.Derivs++
	return c.Provider.Derive(t, y, p)
}

func (c *Counter) Jacobian(t float64, y State, p Params) *mat.Dense {
	c.Jacobians++
	return c.Provider.Jacobian(t, y, p)
}

// Reset zeroes both counts.
func (c *Counter) Reset() {
	c.Derivs = 0
	c.Jacobians = 0
}
