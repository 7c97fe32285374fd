package csp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/stiffsim/internal/dynamo"
	"github.com/san-kum/stiffsim/internal/numeric"
)

// StiffnessSentinel is reported when the fastest slow timescale is zero.
const StiffnessSentinel = 1e99

// Tolerances bound the error committed by treating a mode as exhausted:
// |τ_M · Σ_{k≤M} a_k f_k| must stay below EpsA + EpsR·y_i.
type Tolerances struct {
	EpsA float64 `yaml:"eps_a" json:"eps_a"`
	EpsR float64 `yaml:"eps_r" json:"eps_r"`
}

func DefaultTolerances() Tolerances {
	return Tolerances{EpsA: 1e-3, EpsR: 1e-3}
}

// Projection is the result of one CSP analysis.
type Projection struct {
	Basis *Basis
	// M is the number of exhausted fast modes.
	M int
	// TauM1 is |τ_M|, the timescale of the fastest slow mode.
	TauM1 float64
	// Qs = I - Σ_{r<M} a_r b_rᵀ
	Qs *mat.Dense
	// Rc = Σ_{r<M} τ_r a_r b_rᵀ
	Rc        *mat.Dense
	Stiffness float64
}

// FastModes counts the exhausted modes of b for the local derivative g.
// Mode M is added while every component passes the error test and τ_M is
// negative; the first failure of either freezes M. At most N-1 modes are
// exhausted.
func FastModes(b *Basis, g, y dynamo.State, tol Tolerances) (int, error) {
	n := b.Dim()
	if err := checkBasis(b, len(g)); err != nil {
		return 0, err
	}
	if err := checkBasis(b, len(y)); err != nil {
		return 0, err
	}
	f := b.Amplitudes(g)

	m := 0
	terms := make([]float64, 0, n)
	for m < n-1 {
		ok := true
		for i := 0; i < n; i++ {
			terms = terms[:0]
			for k := 0; k <= m; k++ {
				terms = append(terms, b.A[k][i]*f[k])
			}
			if math.Abs(b.Tau[m]*numeric.FSum(terms)) >= tol.EpsA+tol.EpsR*y[i] {
				ok = false
				break
			}
		}
		if !ok || !(b.Tau[m] < 0) {
			break
		}
		m++
	}
	return m, nil
}

// Build assembles the projector and the radical-correction tensor for the
// first m modes of b. m is clamped to [0, N-1].
func Build(b *Basis, m int) *Projection {
	n := b.Dim()
	m = max(0, min(m, n-1))
	qs := mat.NewDense(n, n, nil)
	rc := mat.NewDense(n, n, nil)
	terms := make([]float64, m)
	weighted := make([]float64, m)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for r := 0; r < m; r++ {
				terms[r] = b.A[r][i] * b.B[r][j]
				weighted[r] = terms[r] * b.Tau[r]
			}
			id := 0.0
			if i == j {
				id = 1
			}
			qs.Set(i, j, id-numeric.FSum(terms))
			rc.Set(i, j, numeric.FSum(weighted))
		}
	}

	taum1 := math.Abs(b.Tau[m])
	stiff := StiffnessSentinel
	if taum1 != 0 {
		stiff = math.Abs(b.Tau[0]) / taum1
	}
	return &Projection{
		Basis:     b,
		M:         m,
		TauM1:     taum1,
		Qs:        qs,
		Rc:        rc,
		Stiffness: stiff,
	}
}

// Analyze runs the full CSP analysis at (t, y).
func Analyze(prov dynamo.Provider, t float64, y dynamo.State, p dynamo.Params, tol Tolerances) (*Projection, error) {
	if err := dynamo.CheckDim(prov, y); err != nil {
		return nil, err
	}
	b, err := Decompose(prov.Jacobian(t, y, p))
	if err != nil {
		return nil, fmt.Errorf("csp at t=%g: %w", t, err)
	}
	m, err := FastModes(b, prov.Derive(t, y, p), y, tol)
	if err != nil {
		return nil, err
	}
	return Build(b, m), nil
}

// Project returns q·g.
func Project(q mat.Matrix, g dynamo.State) dynamo.State {
	out := mat.NewVecDense(len(g), nil)
	out.MulVec(q, mat.NewVecDense(len(g), g.Clone()))
	return dynamo.State(out.RawVector().Data)
}

// RadicalCorrection returns Rc·g(t, y), the correction subtracted from a
// state after a slow-manifold step.
func RadicalCorrection(prov dynamo.Provider, t float64, y dynamo.State, p dynamo.Params, rc mat.Matrix) dynamo.State {
	return Project(rc, prov.Derive(t, y, p))
}

// Projected restricts a provider to its slow manifold: Derive returns
// Qs·g with Qs frozen at construction.
type Projected struct {
	dynamo.Provider
	Qs *mat.Dense
}

func NewProjected(prov dynamo.Provider, qs *mat.Dense) *Projected {
	return &Projected{Provider: prov, Qs: qs}
}

func (p *Projected) Derive(t float64, y dynamo.State, params dynamo.Params) dynamo.State {
	return Project(p.Qs, p.Provider.Derive(t, y, params))
}

func (p *Projected) Jacobian(t float64, y dynamo.State, params dynamo.Params) *mat.Dense {
	var out mat.Dense
	out.Mul(p.Qs, p.Provider.Jacobian(t, y, params))
	return &out
}
