package csp

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/stiffsim/internal/dynamo"
	"github.com/san-kum/stiffsim/internal/numeric"
)

// resolution below which an inner product is treated as zero.
const resolution = 1e-15

// Basis is the eigen-decomposition of a Jacobian turned into real CSP
// vectors A[k] and covectors B[k], ordered by ascending Re(λ).
type Basis struct {
	Lambda []complex128
	Tau    []float64
	A      [][]float64
	B      [][]float64

	// Normalized[k] is false when mode k (or its complex pair) had a
	// numerically zero inner product and was left as returned.
	Normalized []bool
	// Paired[k] marks the second member of a complex-conjugate pair.
	Paired []bool
}

func (b *Basis) Dim() int { return len(b.Tau) }

// Decompose builds the CSP basis of j.
func Decompose(j mat.Matrix) (*Basis, error) {
	n, err := numeric.Square(j)
	if err != nil {
		return nil, err
	}

	var eig mat.Eigen
	if ok := eig.Factorize(j, mat.EigenBoth); !ok {
		return nil, dynamo.ErrEigenFailed
	}
	vals := eig.Values(nil)
	var right, left mat.CDense
	eig.VectorsTo(&right)
	eig.LeftVectorsTo(&left)

	order := sortIndex(vals)

	b := &Basis{
		Lambda:     make([]complex128, n),
		Tau:        make([]float64, n),
		A:          make([][]float64, n),
		B:          make([][]float64, n),
		Normalized: make([]bool, n),
		Paired:     make([]bool, n),
	}
	rs := make([][]complex128, n)
	ls := make([][]complex128, n)
	for k, idx := range order {
		b.Lambda[k] = vals[idx]
		b.Tau[k] = 1 / real(vals[idx])
		rs[k] = column(&right, idx)
		ls[k] = column(&left, idx)
	}

	for k := 0; k < n; k++ {
		if b.Paired[k] {
			continue
		}
		if imag(b.Lambda[k]) != 0 && k+1 < n && isConjugate(b.Lambda[k], b.Lambda[k+1]) {
			b.setPair(k, rs[k], ls[k])
			b.Paired[k+1] = true
			continue
		}
		b.setReal(k, rs[k], ls[k])
	}
	return b, nil
}

// setPair writes the real decomposition of one complex eigenpair into
// modes k and k+1. With c = lᴴr and r' = r/c:
//
//	a1 = Re r', a2 = Im r', b1 = 2 Re l, b2 = 2 Im l
func (b *Basis) setPair(k int, r, l []complex128) {
	n := len(r)
	re := make([]float64, n)
	im := make([]float64, n)
	for i := range r {
		p := cmplx.Conj(l[i]) * r[i]
		re[i] = real(p)
		im[i] = imag(p)
	}
	c := complex(numeric.FSum(re), numeric.FSum(im))
	mod2 := real(c)*real(c) + imag(c)*imag(c)

	a1, a2 := make([]float64, n), make([]float64, n)
	b1, b2 := make([]float64, n), make([]float64, n)
	normalize := mod2 > resolution
	for i := range r {
		v := r[i]
		if normalize {
			v = r[i] * cmplx.Conj(c) / complex(mod2, 0)
		}
		a1[i], a2[i] = real(v), imag(v)
		b1[i], b2[i] = 2*real(l[i]), 2*imag(l[i])
	}
	b.A[k], b.A[k+1] = a1, a2
	b.B[k], b.B[k+1] = b1, b2
	b.Normalized[k], b.Normalized[k+1] = normalize, normalize
}

func (b *Basis) setReal(k int, r, l []complex128) {
	n := len(r)
	a, cov := make([]float64, n), make([]float64, n)
	for i := range r {
		a[i] = real(r[i])
		cov[i] = real(l[i])
	}
	dot := numeric.Dot(a, cov)
	if math.Abs(dot) > resolution {
		for i := range a {
			a[i] /= dot
		}
		b.Normalized[k] = true
	}
	b.A[k] = a
	b.B[k] = cov
}

// Biorthogonality returns the largest |B[i]·A[j] - δ_ij| over the
// normalized modes.
func (b *Basis) Biorthogonality() float64 {
	worst := 0.0
	for i := range b.B {
		if !b.Normalized[i] {
			continue
		}
		for j := range b.A {
			if !b.Normalized[j] {
				continue
			}
			want := 0.0
			if i == j {
				want = 1
			}
			worst = math.Max(worst, math.Abs(numeric.Dot(b.B[i], b.A[j])-want))
		}
	}
	return worst
}

// Amplitudes returns f_k = B[k]·g.
func (b *Basis) Amplitudes(g dynamo.State) []float64 {
	f := make([]float64, len(b.B))
	for k, cov := range b.B {
		f[k] = numeric.Dot(cov, g)
	}
	return f
}

// sortIndex orders eigenvalues by ascending real part with an insertion
// sort, so ties keep their original order.
func sortIndex(vals []complex128) []int {
	order := make([]int, len(vals))
	for i := range order {
		order[i] = i
	}
	for j := 1; j < len(order); j++ {
		idx := order[j]
		key := real(vals[idx])
		i := j - 1
		for i >= 0 && real(vals[order[i]]) > key {
			order[i+1] = order[i]
			i--
		}
		order[i+1] = idx
	}
	return order
}

func column(m *mat.CDense, j int) []complex128 {
	r, _ := m.Dims()
	out := make([]complex128, r)
	for i := range out {
		out[i] = m.At(i, j)
	}
	return out
}

func isConjugate(a, b complex128) bool {
	scale := math.Max(cmplx.Abs(a), 1)
	return cmplx.Abs(a-cmplx.Conj(b)) <= 1e-10*scale
}

func checkBasis(b *Basis, n int) error {
	if b.Dim() != n {
		return fmt.Errorf("basis has %d modes, state has %d: %w", b.Dim(), n, dynamo.ErrDimensionMismatch)
	}
	return nil
}
