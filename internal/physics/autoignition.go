package physics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/stiffsim/internal/dynamo"
)

// Autoignition is a constant-pressure, single-step Arrhenius model
//
//	F + s·O → (1+s)·P,   r = A·ρ·Y_F·Y_O·exp(-Ta/T),   ρ = P·W/(Ru·T)
//
// State: [T, Y_F, Y_O, Y_P] with an optional fifth inert component.
// Params: [pressure in Pa].
type Autoignition struct {
	A        float64 // pre-exponential factor, m³/(kg·s)
	Ta       float64 // activation temperature, K
	Q        float64 // heat release per kg fuel, J/kg
	Cp       float64 // mixture heat capacity, J/(kg·K)
	S        float64 // oxidizer/fuel stoichiometric mass ratio
	W        float64 // mean molecular weight, kg/mol
	Pressure float64 // Pa, used when Params is empty
	Inert    bool    // carry a fifth, non-reacting component
}

const universalGas = 8.314462618

func NewAutoignition() *Autoignition {
	return &Autoignition{
		A:        1.0e9,
		Ta:       15000,
		Q:        5.0e7,
		Cp:       1400,
		S:        4,
		W:        0.029,
		Pressure: 101325,
	}
}

func (a *Autoignition) Name() string { return "autoignition" }

func (a *Autoignition) Dim() int {
	if a.Inert {
		return 5
	}
	return 4
}

// rate returns r and its gradient with respect to (T, Y_F, Y_O).
func (a *Autoignition) rate(y dynamo.State, p dynamo.Params) (r, drdT, drdF, drdO float64) {
	temp := math.Max(y[0], 1)
	yf, yo := math.Max(y[1], 0), math.Max(y[2], 0)
	k := a.A * p.At(0, a.Pressure) * a.W / universalGas
	e := math.Exp(-a.Ta/temp) / temp
	r = k * yf * yo * e
	drdT = r * (a.Ta/(temp*temp) - 1/temp)
	drdF = k * yo * e
	drdO = k * yf * e
	return r, drdT, drdF, drdO
}

func (a *Autoignition) Derive(_ float64, y dynamo.State, p dynamo.Params) dynamo.State {
	r, _, _, _ := a.rate(y, p)
	out := make(dynamo.State, a.Dim())
	out[0] = a.Q * r / a.Cp
	out[1] = -r
	out[2] = -a.S * r
	out[3] = (1 + a.S) * r
	return out
}

func (a *Autoignition) Jacobian(_ float64, y dynamo.State, p dynamo.Params) *mat.Dense {
	n := a.Dim()
	_, drdT, drdF, drdO := a.rate(y, p)
	grad := []float64{drdT, drdF, drdO}
	coef := []float64{a.Q / a.Cp, -1, -a.S, 1 + a.S}
	jac := mat.NewDense(n, n, nil)
	for i, c := range coef {
		for j, g := range grad {
			jac.Set(i, j, c*g)
		}
	}
	return jac
}

// DefaultState is a lean fuel/air mixture at 1000 K.
func (a *Autoignition) DefaultState() dynamo.State {
	s := dynamo.State{1000, 0.05, 0.22, 0}
	if a.Inert {
		s = append(s, 0.73)
	}
	return s
}

func (a *Autoignition) DefaultParams() dynamo.Params { return dynamo.Params{a.Pressure} }

func (a *Autoignition) GetParams() map[string]float64 {
	return map[string]float64{
		"A": a.A, "Ta": a.Ta, "Q": a.Q, "cp": a.Cp, "s": a.S, "W": a.W, "pressure": a.Pressure,
	}
}

func (a *Autoignition) SetParam(name string, value float64) {
	switch name {
	case "A":
		a.A = value
	case "Ta":
		a.Ta = value
	case "Q":
		a.Q = value
	case "cp":
		a.Cp = value
	case "s":
		a.S = value
	case "W":
		a.W = value
	case "pressure":
		a.Pressure = value
	}
}
