package physics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/stiffsim/internal/dynamo"
)

// VanDerPol implements the Van der Pol oscillator.
// State: [x, y] where y = dx/dt
// Params: [η]
// Equations:
//
//	dx/dt = y
//	dy/dt = η(1 - x²)y - x
type VanDerPol struct {
	eta float64 // used when Params carries no η
}

func NewVanDerPol() *VanDerPol {
	return &VanDerPol{eta: 1000}
}

func (v *VanDerPol) Name() string { return "vdp" }
func (v *VanDerPol) Dim() int     { return 2 }

func (v *VanDerPol) Derive(_ float64, s dynamo.State, p dynamo.Params) dynamo.State {
	eta := p.At(0, v.eta)
	x, y := s[0], s[1]
	return dynamo.State{y, eta*(1-x*x)*y - x}
}

func (v *VanDerPol) Jacobian(_ float64, s dynamo.State, p dynamo.Params) *mat.Dense {
	eta := p.At(0, v.eta)
	x, y := s[0], s[1]
	return mat.NewDense(2, 2, []float64{
		0, 1,
		-1 - 2*x*y*eta, eta - eta*x*x,
	})
}

func (v *VanDerPol) DefaultState() dynamo.State   { return dynamo.State{2.0, 0.0} }
func (v *VanDerPol) DefaultParams() dynamo.Params { return dynamo.Params{v.eta} }

func (v *VanDerPol) GetParams() map[string]float64 {
	return map[string]float64{"eta": v.eta}
}

func (v *VanDerPol) SetParam(name string, value float64) {
	if name == "eta" {
		v.eta = value
	}
}
