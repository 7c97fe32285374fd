package numeric

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Weights scale the weighted norm: rows are divided by I, entries are
// multiplied by J.
type Weights struct {
	I float64
	J float64
}

func DefaultWeights() Weights {
	return Weights{I: 1, J: 1}
}

// row is a 1×n read-only view of a vector.
type row []float64

func (r row) Dims() (int, int) { return 1, len(r) }

func (r row) At(i, j int) float64 {
	if i != 0 {
		panic(mat.ErrRowAccess)
	}
	return r[j]
}

func (r row) T() mat.Matrix { return mat.Transpose{Matrix: r} }

// Row presents v as a single-row matrix so vectors and matrices share one
// norm implementation.
func Row(v []float64) mat.Matrix {
	return row(v)
}

// WeightedNorm returns max_i((1/w.I) Σ_j w.J |m_ij|).
func WeightedNorm(m mat.Matrix, w Weights) float64 {
	r, c := m.Dims()
	best := math.Inf(-1)
	for i := 0; i < r; i++ {
		sum := 0.0
		for j := 0; j < c; j++ {
			sum += w.J * math.Abs(m.At(i, j))
		}
		sum /= w.I
		if sum > best {
			best = sum
		}
	}
	return best
}
