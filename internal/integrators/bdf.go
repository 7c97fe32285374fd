package integrators

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/stiffsim/internal/dynamo"
)

// BDF is the first-order backward differentiation formula (backward
// Euler) with a simplified Newton iteration and step-size control from
// the local error estimate h/2·|f(y_{n+1}) - f(y_n)|. It is the stiff
// family: stability does not limit the step.
type BDF struct {
	core
	safety   float64
	minScale float64
	maxScale float64
	maxIter  int

	h float64
}

func NewBDF(prov dynamo.Provider, tol Tolerances) Solver {
	return &BDF{
		core:     newCore(prov, tol),
		safety:   0.9,
		minScale: 0.2,
		maxScale: 5.0,
		maxIter:  8,
	}
}

func (b *BDF) Name() string { return "bdf" }

func (b *BDF) SetInitialValue(y0 dynamo.State, t0 float64) error {
	b.h = 0
	return b.core.SetInitialValue(y0, t0)
}

func (b *BDF) Advance(dt float64) (float64, dynamo.State, error) {
	if err := b.begin(dt); err != nil {
		return b.t, b.y.Clone(), err
	}
	target := b.t + dt
	h := b.h
	if h <= 0 || h > dt {
		h = dt
	}

	for n := 0; !reached(b.t, target); n++ {
		if n >= b.tol.MaxSteps {
			return b.fail(dynamo.ErrStepTooSmall)
		}
		step := math.Min(h, target-b.t)
		if step < minStep(b.t) {
			return b.fail(dynamo.ErrStepTooSmall)
		}

		f0 := b.fn.Derive(b.t, b.y, b.params)
		yNew, f1, err := b.solve(step, f0)
		if err != nil {
			b.rejected++
			h = step * 0.25
			continue
		}

		errEst := make(dynamo.State, len(yNew))
		for i := range errEst {
			errEst[i] = 0.5 * step * (f1[i] - f0[i])
		}
		errRatio := b.errNorm(errEst, b.y, yNew)

		var scale float64
		if errRatio > 1 {
			scale = math.Max(b.minScale, b.safety/math.Sqrt(errRatio))
			b.rejected++
		} else {
			if errRatio > 0 {
				scale = math.Min(b.maxScale, b.safety/math.Sqrt(errRatio))
			} else {
				scale = b.maxScale
			}
			b.t += step
			b.y = yNew
			b.steps++
		}
		h = step * scale
	}
	b.t = target
	b.h = h
	return b.t, b.y.Clone(), nil
}

// solve finds y with y - y_n - h·f(t+h, y) = 0. The iteration matrix
// I - h·J is factorized once per attempt.
func (b *BDF) solve(h float64, f0 dynamo.State) (dynamo.State, dynamo.State, error) {
	n := len(b.y)
	tNew := b.t + h

	y := make(dynamo.State, n)
	for i := range y {
		y[i] = b.y[i] + h*f0[i]
	}
	if !y.IsValid() {
		y = b.y.Clone()
	}

	jac := b.jacobian(tNew, y)
	iter := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := -h * jac.At(i, j)
			if i == j {
				v += 1
			}
			iter.Set(i, j, v)
		}
	}
	var lu mat.LU
	lu.Factorize(iter)

	res := mat.NewVecDense(n, nil)
	delta := mat.NewVecDense(n, nil)
	for k := 0; k < b.maxIter; k++ {
		f := b.fn.Derive(tNew, y, b.params)
		for i := 0; i < n; i++ {
			res.SetVec(i, -(y[i] - b.y[i] - h*f[i]))
		}
		if err := lu.SolveVecTo(delta, false, res); err != nil {
			return nil, nil, fmt.Errorf("newton matrix: %w", err)
		}
		for i := 0; i < n; i++ {
			y[i] += delta.AtVec(i)
		}
		if !y.IsValid() {
			return nil, nil, dynamo.ErrInvalidState
		}
		if b.errNorm(delta.RawVector().Data, b.y, y) < 1e-3 {
			return y, b.fn.Derive(tNew, y, b.params), nil
		}
	}
	return nil, nil, fmt.Errorf("newton: no convergence in %d iterations", b.maxIter)
}

func (b *BDF) jacobian(t float64, y dynamo.State) *mat.Dense {
	if b.tol.UseJacobian {
		return b.fn.Jacobian(t, y, b.params)
	}
	return FiniteDifferenceJacobian(b.fn, t, y, b.params)
}

// FiniteDifferenceJacobian forms ∂f/∂y by forward differences. Every column
// costs one evaluation of prov.
func FiniteDifferenceJacobian(prov dynamo.Provider, t float64, y dynamo.State, p dynamo.Params) *mat.Dense {
	n := len(y)
	jac := mat.NewDense(n, n, nil)
	fd.Jacobian(jac, func(dst, x []float64) {
		copy(dst, prov.Derive(t, dynamo.State(x), p))
	}, y.Clone(), &fd.JacobianSettings{
		Formula:     fd.Forward,
		OriginValue: prov.Derive(t, y, p),
		Step:        1e-7 * math.Max(1, y.Norm()),
	})
	return jac
}
