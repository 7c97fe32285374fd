package numeric

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestWeightedNorm(t *testing.T) {
	tests := []struct {
		name string
		m    mat.Matrix
		w    Weights
		want float64
	}{
		{
			name: "row sums",
			m:    mat.NewDense(2, 2, []float64{1, -2, 3, 4}),
			w:    DefaultWeights(),
			want: 7,
		},
		{
			name: "vector",
			m:    Row([]float64{1, -2, 3}),
			w:    DefaultWeights(),
			want: 6,
		},
		{
			name: "weighted",
			m:    mat.NewDense(2, 2, []float64{1, -2, 3, 4}),
			w:    Weights{I: 2, J: 3},
			want: 10.5,
		},
		{
			name: "single column",
			m:    mat.NewDense(3, 1, []float64{-1, 5, 2}),
			w:    DefaultWeights(),
			want: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeightedNorm(tt.m, tt.w)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("WeightedNorm = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRowTranspose(t *testing.T) {
	v := Row([]float64{1, 2, 3})
	r, c := v.T().Dims()
	if r != 3 || c != 1 {
		t.Fatalf("transpose dims = %d×%d, want 3×1", r, c)
	}
	if got := WeightedNorm(v.T(), DefaultWeights()); got != 3 {
		t.Errorf("column norm = %v, want 3", got)
	}
}
