package numeric

import (
	"fmt"
	"math"

	"github.com/san-kum/stiffsim/internal/dynamo"
)

// MinSamples is the shortest sequence Derivative accepts.
const MinSamples = 4

// Derivative estimates d/dx of uniformly sampled vectors. Interior points
// use the fourth-order central stencil, the two outermost points on each
// side use three-point one-sided stencils. The result has the same length
// as vals, so the operator composes with itself.
func Derivative(vals []dynamo.State, dx float64) ([]dynamo.State, error) {
	n := len(vals)
	if n < MinSamples {
		return nil, fmt.Errorf("%d samples: %w", n, dynamo.ErrTooFewSamples)
	}
	if dx == 0 || math.IsNaN(dx) {
		return nil, fmt.Errorf("step %g: %w", dx, dynamo.ErrNonUniformStep)
	}
	dim := len(vals[0])
	for i, v := range vals {
		if len(v) != dim {
			return nil, fmt.Errorf("sample %d has %d components, want %d: %w",
				i, len(v), dim, dynamo.ErrDimensionMismatch)
		}
	}

	out := make([]dynamo.State, n)
	for i := range out {
		out[i] = make(dynamo.State, dim)
	}

	for k := 0; k < dim; k++ {
		for i := 0; i < 2; i++ {
			out[i][k] = (-3*vals[i][k] + 4*vals[i+1][k] - vals[i+2][k]) / (2 * dx)
		}
		for i := n - 2; i < n; i++ {
			out[i][k] = (3*vals[i][k] - 4*vals[i-1][k] + vals[i-2][k]) / (2 * dx)
		}
		for i := 2; i <= n-3; i++ {
			out[i][k] = (vals[i-2][k] - 8*vals[i-1][k] + 8*vals[i+1][k] - vals[i+2][k]) / (12 * dx)
		}
	}
	return out, nil
}

// DerivativeN applies Derivative order times. Accuracy near the ends
// degrades with every application.
func DerivativeN(vals []dynamo.State, dx float64, order int) ([]dynamo.State, error) {
	if order < 1 {
		return nil, fmt.Errorf("derivative order %d: %w", order, dynamo.ErrParameterBounds)
	}
	cur := vals
	for range order {
		next, err := Derivative(cur, dx)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// UniformStep returns the spacing of times and checks that it is constant
// to within a relative tolerance.
func UniformStep(times []float64) (float64, error) {
	if len(times) < 2 {
		return 0, fmt.Errorf("%d time samples: %w", len(times), dynamo.ErrTooFewSamples)
	}
	dx := times[1] - times[0]
	if dx == 0 {
		return 0, dynamo.ErrNonUniformStep
	}
	tol := 1e-6 * math.Abs(dx)
	for i := 2; i < len(times); i++ {
		if math.Abs((times[i]-times[i-1])-dx) > tol {
			return 0, fmt.Errorf("gap at sample %d: %w", i, dynamo.ErrNonUniformStep)
		}
	}
	return dx, nil
}
