package numeric

import "math"

// FSum adds xs with Neumaier compensation.
func FSum(xs []float64) float64 {
	sum, c := 0.0, 0.0
	for _, x := range xs {
		t := sum + x
		if math.Abs(sum) >= math.Abs(x) {
			c += (sum - t) + x
		} else {
			c += (x - t) + sum
		}
		sum = t
	}
	return sum + c
}

// Dot is the compensated inner product of a and b.
func Dot(a, b []float64) float64 {
	n := min(len(a), len(b))
	terms := make([]float64, n)
	for i := range n {
		terms[i] = a[i] * b[i]
	}
	return FSum(terms)
}

// NearZero reports whether x is zero relative to scale at float64 resolution.
func NearZero(x, scale float64) bool {
	const resolution = 1e-15
	return math.Abs(x) <= resolution*math.Max(1, math.Abs(scale))
}
