package stiffness

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/stiffsim/internal/dynamo"
	"github.com/san-kum/stiffsim/internal/numeric"
)

// Methods for the S(J) factor of the stiffness index.
const (
	MethodSpectralRadius = 1
	MethodWeightedNorm   = 2
)

// IndexParams are the tunable constants of the stiffness index. A zero
// field means "use the default" when passed through WithParams.
type IndexParams struct {
	Method    int     `yaml:"method" json:"method"`
	Gamma     float64 `yaml:"gamma" json:"gamma"`
	Xi        float64 `yaml:"xi" json:"xi"`
	Order     int     `yaml:"order" json:"order"`
	Tolerance float64 `yaml:"tolerance" json:"tolerance"`
	WI        float64 `yaml:"wi" json:"wi"`
	WJ        float64 `yaml:"wj" json:"wj"`
}

func DefaultIndexParams() IndexParams {
	return IndexParams{
		Method:    MethodWeightedNorm,
		Gamma:     1,
		Xi:        1,
		Order:     1,
		Tolerance: 1,
		WI:        1,
		WJ:        1,
	}
}

type IndexOption func(*IndexParams)

func WithMethod(m int) IndexOption          { return func(p *IndexParams) { p.Method = m } }
func WithGamma(g float64) IndexOption       { return func(p *IndexParams) { p.Gamma = g } }
func WithXi(x float64) IndexOption          { return func(p *IndexParams) { p.Xi = x } }
func WithOrder(o int) IndexOption           { return func(p *IndexParams) { p.Order = o } }
func WithTolerance(tol float64) IndexOption { return func(p *IndexParams) { p.Tolerance = tol } }

func WithWeights(wi, wj float64) IndexOption {
	return func(p *IndexParams) {
		p.WI = wi
		p.WJ = wj
	}
}

// WithParams overrides every non-zero field of in.
func WithParams(in IndexParams) IndexOption {
	return func(p *IndexParams) {
		if in.Method != 0 {
			p.Method = in.Method
		}
		if in.Gamma != 0 {
			p.Gamma = in.Gamma
		}
		if in.Xi != 0 {
			p.Xi = in.Xi
		}
		if in.Order != 0 {
			p.Order = in.Order
		}
		if in.Tolerance != 0 {
			p.Tolerance = in.Tolerance
		}
		if in.WI != 0 {
			p.WI = in.WI
		}
		if in.WJ != 0 {
			p.WJ = in.WJ
		}
	}
}

func (p IndexParams) validate() error {
	if p.Method != MethodSpectralRadius && p.Method != MethodWeightedNorm {
		return fmt.Errorf("index method %d: %w", p.Method, dynamo.ErrParameterBounds)
	}
	if p.Order < 1 {
		return fmt.Errorf("index order %d: %w", p.Order, dynamo.ErrParameterBounds)
	}
	if p.Gamma == 0 || p.Xi == 0 || p.WI == 0 {
		return fmt.Errorf("gamma, xi and wi must be nonzero: %w", dynamo.ErrParameterBounds)
	}
	return nil
}

// Index returns the stiffness index at every sample of a uniformly spaced
// trajectory:
//
//	tol^(1/(p+1)) · S(J) · ‖d^p f‖^(-1/(p+1)) · |ξ|^(-1/(p+1)) / |γ|
//
// where f are the derivative samples and S is the spectral radius or the
// weighted norm of the Jacobian.
func Index(times []float64, sol []dynamo.State, prov dynamo.Provider, p dynamo.Params, opts ...IndexOption) ([]float64, error) {
	ip := DefaultIndexParams()
	for _, opt := range opts {
		opt(&ip)
	}
	if err := ip.validate(); err != nil {
		return nil, err
	}
	if len(times) != len(sol) {
		return nil, fmt.Errorf("%d times, %d states: %w", len(times), len(sol), dynamo.ErrDimensionMismatch)
	}
	dx, err := numeric.UniformStep(times)
	if err != nil {
		return nil, err
	}

	derivs := make([]dynamo.State, len(sol))
	for i, y := range sol {
		if err := dynamo.CheckDim(prov, y); err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		derivs[i] = prov.Derive(times[i], y, p)
	}
	dp, err := numeric.DerivativeN(derivs, dx, ip.Order)
	if err != nil {
		return nil, err
	}

	exp := 1 / float64(ip.Order+1)
	w := numeric.Weights{I: ip.WI, J: ip.WJ}
	scale := math.Pow(ip.Tolerance, exp) * math.Pow(math.Abs(ip.Xi), -exp) / math.Abs(ip.Gamma)

	out := make([]float64, len(sol))
	for i, y := range sol {
		s, err := jacobianScale(prov.Jacobian(times[i], y, p), ip.Method, w)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		norm := numeric.WeightedNorm(numeric.Row(dp[i]), w)
		out[i] = scale * s * math.Pow(norm, -exp)
	}
	return out, nil
}

func jacobianScale(j mat.Matrix, method int, w numeric.Weights) (float64, error) {
	if method == MethodSpectralRadius {
		return numeric.SpectralRadius(j)
	}
	if _, err := numeric.Square(j); err != nil {
		return 0, err
	}
	return numeric.WeightedNorm(j, w), nil
}
