package stiffness

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/stiffsim/internal/dynamo"
	"github.com/san-kum/stiffsim/internal/numeric"
)

// Indicator returns (min+max)/2 of the eigenvalues of (J+Jᵀ)/2.
func Indicator(j mat.Matrix) (float64, error) {
	h, err := numeric.SymmetricPart(j)
	if err != nil {
		return 0, err
	}
	vals, err := numeric.SymEigenvalues(h)
	if err != nil {
		return 0, err
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return 0.5 * (lo + hi), nil
}

func IndicatorAt(prov dynamo.Provider, t float64, y dynamo.State, p dynamo.Params) (float64, error) {
	if err := dynamo.CheckDim(prov, y); err != nil {
		return 0, err
	}
	return Indicator(prov.Jacobian(t, y, p))
}

func IndicatorTrajectory(times []float64, sol []dynamo.State, prov dynamo.Provider, p dynamo.Params) ([]float64, error) {
	return pointwise(times, sol, func(t float64, y dynamo.State) (float64, error) {
		return IndicatorAt(prov, t, y, p)
	})
}

// RefTimescale bounds the timescale implied by an indicator value by tLen.
func RefTimescale(ind, tLen float64) float64 {
	if ind >= 0 {
		return tLen
	}
	return math.Min(tLen, -1/ind)
}

func RefTimescales(inds []float64, tLen float64) []float64 {
	out := make([]float64, len(inds))
	for i, v := range inds {
		out[i] = RefTimescale(v, tLen)
	}
	return out
}
