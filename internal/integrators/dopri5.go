package integrators

import (
	"math"

	"github.com/san-kum/stiffsim/internal/dynamo"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// Dopri5 is the explicit Dormand-Prince 5(4) pair with FSAL and
// embedded error control. It is the non-stiff family.
type Dopri5 struct {
	core
	safety   float64
	minScale float64
	maxScale float64

	h    float64
	k1   dynamo.State // derivative at (t, y), valid while fsal is set
	fsal bool
}

func NewDopri5(prov dynamo.Provider, tol Tolerances) Solver {
	return &Dopri5{
		core:     newCore(prov, tol),
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

func (d *Dopri5) Name() string { return "dopri5" }

func (d *Dopri5) SetInitialValue(y0 dynamo.State, t0 float64) error {
	d.fsal = false
	d.h = 0
	return d.core.SetInitialValue(y0, t0)
}

func (d *Dopri5) SetParams(p dynamo.Params) {
	d.fsal = false
	d.core.SetParams(p)
}

func (d *Dopri5) Advance(dt float64) (float64, dynamo.State, error) {
	if err := d.begin(dt); err != nil {
		return d.t, d.y.Clone(), err
	}
	target := d.t + dt
	h := d.h
	if h <= 0 || h > dt {
		h = dt
	}

	for n := 0; !reached(d.t, target); n++ {
		if n >= d.tol.MaxSteps {
			return d.fail(dynamo.ErrStepTooSmall)
		}
		step := math.Min(h, target-d.t)
		if step < minStep(d.t) {
			return d.fail(dynamo.ErrStepTooSmall)
		}

		yNew, k7, errRatio := d.try(step)
		if !yNew.IsValid() || math.IsNaN(errRatio) {
			d.rejected++
			h = step * d.minScale
			continue
		}

		var scale float64
		if errRatio > 1 {
			scale = math.Max(d.minScale, d.safety*math.Pow(errRatio, -0.25))
			d.rejected++
		} else {
			if errRatio > 0 {
				scale = math.Min(d.maxScale, d.safety*math.Pow(errRatio, -0.2))
			} else {
				scale = d.maxScale
			}
			d.t += step
			d.y = yNew
			d.k1 = k7
			d.fsal = true
			d.steps++
		}
		h = step * scale
	}
	d.t = target
	d.h = h
	return d.t, d.y.Clone(), nil
}

// try takes one Dormand-Prince step of size dt from the current state and
// returns the candidate, its derivative and the scaled error.
func (d *Dopri5) try(dt float64) (dynamo.State, dynamo.State, float64) {
	x, t, p := d.y, d.t, d.params
	n := len(x)

	if !d.fsal {
		d.k1 = d.fn.Derive(t, x, p)
		d.fsal = true
	}
	k1 := d.k1

	stage := func(coef ...float64) func(ks ...dynamo.State) dynamo.State {
		return func(ks ...dynamo.State) dynamo.State {
			out := make(dynamo.State, n)
			for i := 0; i < n; i++ {
				sum := 0.0
				for j, k := range ks {
					sum += coef[j] * k[i]
				}
				out[i] = x[i] + dt*sum
			}
			return out
		}
	}

	k2 := d.fn.Derive(t+a2*dt, stage(b21)(k1), p)
	k3 := d.fn.Derive(t+a3*dt, stage(b31, b32)(k1, k2), p)
	k4 := d.fn.Derive(t+a4*dt, stage(b41, b42, b43)(k1, k2, k3), p)
	k5 := d.fn.Derive(t+a5*dt, stage(b51, b52, b53, b54)(k1, k2, k3, k4), p)
	k6 := d.fn.Derive(t+dt, stage(b61, b62, b63, b64, b65)(k1, k2, k3, k4, k5), p)

	xNew := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		xNew[i] = x[i] + dt*(c1*k1[i]+c3*k3[i]+c4*k4[i]+c5*k5[i]+c6*k6[i])
	}
	k7 := d.fn.Derive(t+dt, xNew, p)

	errEst := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		errEst[i] = dt * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
	}
	return xNew, k7, d.errNorm(errEst, x, xNew)
}
