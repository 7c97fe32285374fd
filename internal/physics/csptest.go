package physics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/stiffsim/internal/dynamo"
)

// CSPTest is the N-mode model problem with timescales separated by powers
// of ε. For i < N-1
//
//	dy_i/dt = ε^-(N-1-i)·(-y_i + h(y_{i+1})) - Σ_{k>i} s(y_k)
//
// with h(u) = u/(1+u) and s(u) = u/(1+u)², and dy_{N-1}/dt = -y_{N-1}.
// Params: [ε].
type CSPTest struct {
	N   int
	Eps float64
}

func NewCSPTest() *CSPTest {
	return &CSPTest{N: 4, Eps: 1e-2}
}

func (c *CSPTest) Name() string { return "csp_test" }
func (c *CSPTest) Dim() int     { return c.N }

func (c *CSPTest) Derive(_ float64, y dynamo.State, p dynamo.Params) dynamo.State {
	eps := p.At(0, c.Eps)
	n := c.N
	out := make(dynamo.State, n)
	for i := 0; i < n-1; i++ {
		sum := 0.0
		for k := i + 1; k < n; k++ {
			sum += y[k] / ((1 + y[k]) * (1 + y[k]))
		}
		out[i] = math.Pow(eps, -float64(n-1-i))*(-y[i]+y[i+1]/(1+y[i+1])) - sum
	}
	out[n-1] = -y[n-1]
	return out
}

func (c *CSPTest) Jacobian(_ float64, y dynamo.State, p dynamo.Params) *mat.Dense {
	eps := p.At(0, c.Eps)
	n := c.N
	jac := mat.NewDense(n, n, nil)
	for i := 0; i < n-1; i++ {
		scale := math.Pow(eps, -float64(n-1-i))
		jac.Set(i, i, -scale)
		for k := i + 1; k < n; k++ {
			u := 1 + y[k]
			ds := (1 - y[k]) / (u * u * u)
			if k == i+1 {
				jac.Set(i, k, scale/(u*u)-ds)
			} else {
				jac.Set(i, k, -ds)
			}
		}
	}
	jac.Set(n-1, n-1, -1)
	return jac
}

func (c *CSPTest) DefaultState() dynamo.State {
	s := make(dynamo.State, c.N)
	for i := range s {
		s[i] = 1
	}
	return s
}

func (c *CSPTest) DefaultParams() dynamo.Params { return dynamo.Params{c.Eps} }

func (c *CSPTest) GetParams() map[string]float64 {
	return map[string]float64{"eps": c.Eps}
}

func (c *CSPTest) SetParam(name string, value float64) {
	if name == "eps" {
		c.Eps = value
	}
}
