package physics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/stiffsim/internal/dynamo"
)

// Lorenz is the non-stiff reference problem. Params: [σ, ρ, β].
type Lorenz struct{ sigma, rho, beta float64 }

func NewLorenz() *Lorenz       { return &Lorenz{10.0, 28.0, 8.0 / 3.0} }
func (l *Lorenz) Name() string { return "lorenz" }
func (l *Lorenz) Dim() int     { return 3 }

func (l *Lorenz) coeffs(p dynamo.Params) (float64, float64, float64) {
	return p.At(0, l.sigma), p.At(1, l.rho), p.At(2, l.beta)
}

func (l *Lorenz) Derive(_ float64, s dynamo.State, p dynamo.Params) dynamo.State {
	sigma, rho, beta := l.coeffs(p)
	return dynamo.State{sigma * (s[1] - s[0]), s[0]*(rho-s[2]) - s[1], s[0]*s[1] - beta*s[2]}
}

func (l *Lorenz) Jacobian(_ float64, s dynamo.State, p dynamo.Params) *mat.Dense {
	sigma, rho, beta := l.coeffs(p)
	return mat.NewDense(3, 3, []float64{
		-sigma, sigma, 0,
		rho - s[2], -1, -s[0],
		s[1], s[0], -beta,
	})
}

func (l *Lorenz) DefaultState() dynamo.State   { return dynamo.State{1.0, 1.0, 1.0} }
func (l *Lorenz) DefaultParams() dynamo.Params { return dynamo.Params{l.sigma, l.rho, l.beta} }

func (l *Lorenz) GetParams() map[string]float64 {
	return map[string]float64{"sigma": l.sigma, "rho": l.rho, "beta": l.beta}
}

func (l *Lorenz) SetParam(n string, v float64) {
	switch n {
	case "sigma":
		l.sigma = v
	case "rho":
		l.rho = v
	case "beta":
		l.beta = v
	}
}
