package stiffness

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/stiffsim/internal/dynamo"
	"github.com/san-kum/stiffsim/internal/numeric"
)

// RatioSentinel is reported when every eigenvalue is zero.
const RatioSentinel = 1e99

// Ratio returns max|λ|/min|λ| over the nonzero eigenvalues of j.
func Ratio(j mat.Matrix) (float64, error) {
	vals, err := numeric.Eigenvalues(j)
	if err != nil {
		return 0, err
	}
	lo, hi := math.Inf(1), 0.0
	for _, v := range vals {
		a := cmplx.Abs(v)
		if a == 0 {
			continue
		}
		lo = math.Min(lo, a)
		hi = math.Max(hi, a)
	}
	if hi == 0 {
		return RatioSentinel, nil
	}
	return hi / lo, nil
}

// CEMA returns the eigenvalue of j with the largest real part. A positive
// real part marks a locally explosive mode.
func CEMA(j mat.Matrix) (complex128, error) {
	vals, err := numeric.Eigenvalues(j)
	if err != nil {
		return 0, err
	}
	best := vals[0]
	for _, v := range vals[1:] {
		if real(v) > real(best) {
			best = v
		}
	}
	return best, nil
}

// CEMAValue is the real part of CEMA.
func CEMAValue(j mat.Matrix) (float64, error) {
	v, err := CEMA(j)
	if err != nil {
		return 0, err
	}
	return real(v), nil
}

func RatioAt(prov dynamo.Provider, t float64, y dynamo.State, p dynamo.Params) (float64, error) {
	if err := dynamo.CheckDim(prov, y); err != nil {
		return 0, err
	}
	return Ratio(prov.Jacobian(t, y, p))
}

func CEMAAt(prov dynamo.Provider, t float64, y dynamo.State, p dynamo.Params) (float64, error) {
	if err := dynamo.CheckDim(prov, y); err != nil {
		return 0, err
	}
	return CEMAValue(prov.Jacobian(t, y, p))
}
