package dynamo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// State is an ordered state vector. Component order is fixed for the whole
// life of a run; for autoignition it is temperature followed by species mass
// fractions.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// Params are the positional right-hand-side parameters of a provider
// (η for Van der Pol, pressure for autoignition). Each provider documents
// its own slots and falls back to a default for a missing slot.
type Params []float64

// At returns p[i], or def when the slot is absent.
func (p Params) At(i int, def float64) float64 {
	if i < 0 || i >= len(p) {
		return def
	}
	return p[i]
}

func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	c := make(Params, len(p))
	copy(c, p)
	return c
}

// Provider evaluates the right-hand side of dy/dt = f(t, y; p) and its
// Jacobian. Implementations must not modify y and must return freshly
// allocated results.
type Provider interface {
	Dim() int
	Derive(t float64, y State, p Params) State
	Jacobian(t float64, y State, p Params) *mat.Dense
}

// Named is implemented by providers that carry a registry name.
type Named interface {
	Name() string
}

// CheckDim reports a dimension mismatch between a provider and a state.
func CheckDim(prov Provider, y State) error {
	if prov == nil {
		return fmt.Errorf("nil provider: %w", ErrDimensionMismatch)
	}
	if len(y) != prov.Dim() {
		return fmt.Errorf("state has %d components, provider expects %d: %w",
			len(y), prov.Dim(), ErrDimensionMismatch)
	}
	return nil
}

type StepError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.6g): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
