package csp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/stiffsim/internal/dynamo"
	"github.com/san-kum/stiffsim/internal/numeric"
	"github.com/san-kum/stiffsim/internal/physics"
)

func TestSortIndexStable(t *testing.T) {
	order := sortIndex([]complex128{-1, -3, -1, complex(-3, 2), 5})
	assert.Equal(t, []int{1, 3, 0, 2, 4}, order)
}

func TestDecomposeRealModes(t *testing.T) {
	jac := mat.NewDense(3, 3, []float64{
		-100, 1, 0,
		0, -10, 1,
		0, 0, -1,
	})
	b, err := Decompose(jac)
	require.NoError(t, err)

	assert.InDelta(t, -0.01, b.Tau[0], 1e-12)
	assert.InDelta(t, -0.1, b.Tau[1], 1e-12)
	assert.InDelta(t, -1.0, b.Tau[2], 1e-12)
	for k := range b.Normalized {
		assert.True(t, b.Normalized[k], "mode %d", k)
	}

	for i := range b.B {
		assert.InDelta(t, 1.0, numeric.Dot(b.B[i], b.A[i]), 1e-10, "b%d·a%d", i, i)
		for j := range b.A {
			if i != j {
				assert.InDelta(t, 0.0, numeric.Dot(b.B[i], b.A[j]), 1e-8, "b%d·a%d", i, j)
			}
		}
	}
	assert.Less(t, b.Biorthogonality(), 1e-8)
}

func TestDecomposeComplexPair(t *testing.T) {
	// Eigenvalues -1 ± 2i and -5.
	jac := mat.NewDense(3, 3, []float64{
		-1, 2, 0,
		-2, -1, 0,
		0.5, 0.3, -5,
	})
	b, err := Decompose(jac)
	require.NoError(t, err)

	assert.InDelta(t, -0.2, b.Tau[0], 1e-12)
	assert.InDelta(t, -1.0, b.Tau[1], 1e-12)
	assert.InDelta(t, -1.0, b.Tau[2], 1e-12)
	assert.False(t, b.Paired[1])
	assert.True(t, b.Paired[2])
	assert.Less(t, b.Biorthogonality(), 1e-10)

	// The real basis spans the whole space: Σ a_k b_kᵀ = I.
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			sum := 0.0
			for k := 0; k < 3; k++ {
				sum += b.A[k][i] * b.B[k][j]
			}
			want := 0.0
			if i == j {
				want = 1
			}
			assert.InDelta(t, want, sum, 1e-10, "(%d,%d)", i, j)
		}
	}
}

func TestDecomposeNonSquare(t *testing.T) {
	_, err := Decompose(mat.NewDense(2, 3, nil))
	require.ErrorIs(t, err, dynamo.ErrNonSquare)
}

func TestFastModesZeroTolerance(t *testing.T) {
	prov := physics.NewCSPTest()
	y := prov.DefaultState()

	proj, err := Analyze(prov, 0, y, nil, Tolerances{})
	require.NoError(t, err)
	assert.Equal(t, 0, proj.M)

	n := prov.Dim()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			assert.Equal(t, want, proj.Qs.At(i, j))
			assert.Equal(t, 0.0, proj.Rc.At(i, j))
		}
	}
	assert.Equal(t, 1.0, proj.Stiffness)
}

func TestFastModesMonotoneInTolerance(t *testing.T) {
	prov := physics.NewCSPTest()
	y := dynamo.State{1, 0.9, 0.8, 0.7}
	b, err := Decompose(prov.Jacobian(0, y, nil))
	require.NoError(t, err)
	g := prov.Derive(0, y, nil)

	prev := -1
	for _, eps := range []float64{0, 1e-12, 1e-8, 1e-4, 1e-2, 1, 1e2, 1e6} {
		m, err := FastModes(b, g, y, Tolerances{EpsA: eps, EpsR: eps})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, m, prev, "eps=%g", eps)
		assert.LessOrEqual(t, m, prov.Dim()-1)
		prev = m
	}
	assert.Equal(t, prov.Dim()-1, prev, "loose tolerances exhaust every stable mode but the slowest")
}

func TestFastModesStopsAtExplosiveMode(t *testing.T) {
	// Positive eigenvalue sorts last; τ_0 > 0 blocks the first mode.
	jac := mat.NewDense(2, 2, []float64{3, 0, 0, 5})
	b, err := Decompose(jac)
	require.NoError(t, err)
	m, err := FastModes(b, dynamo.State{0, 0}, dynamo.State{1, 1}, Tolerances{EpsA: 1, EpsR: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, m)
}

func TestAnalyzeProjector(t *testing.T) {
	prov := physics.NewCSPTest()
	y := dynamo.State{1, 0.9, 0.8, 0.7}
	proj, err := Analyze(prov, 0, y, nil, Tolerances{EpsA: 1e2, EpsR: 1e2})
	require.NoError(t, err)
	require.Greater(t, proj.M, 0)

	b := proj.Basis
	assert.Less(t, b.Biorthogonality(), 1e-8)
	assert.Equal(t, math.Abs(b.Tau[proj.M]), proj.TauM1)
	assert.InEpsilon(t, math.Abs(b.Tau[0])/proj.TauM1, proj.Stiffness, 1e-12)

	// Qs is a projector.
	var qq mat.Dense
	qq.Mul(proj.Qs, proj.Qs)
	assert.True(t, mat.EqualApprox(&qq, proj.Qs, 1e-6))

	// Qs removes the exhausted directions: b_r·(Qs g) ≈ 0 for r < M.
	g := prov.Derive(0, y, nil)
	slow := Project(proj.Qs, g)
	for r := 0; r < proj.M; r++ {
		scale := math.Max(1, math.Abs(numeric.Dot(b.B[r], g)))
		assert.InDelta(t, 0, numeric.Dot(b.B[r], slow)/scale, 1e-8, "mode %d", r)
	}

	projected := NewProjected(prov, proj.Qs)
	assert.Equal(t, slow, projected.Derive(0, y, nil))

	rc := RadicalCorrection(prov, 0, y, nil, proj.Rc)
	assert.Len(t, rc, prov.Dim())
}

func TestStiffnessSentinel(t *testing.T) {
	b := &Basis{
		Tau: []float64{-1, 0},
		A:   [][]float64{{1, 0}, {0, 1}},
		B:   [][]float64{{1, 0}, {0, 1}},
	}
	proj := Build(b, 1)
	assert.Equal(t, StiffnessSentinel, proj.Stiffness)
	assert.Equal(t, 0.0, proj.TauM1)
}
