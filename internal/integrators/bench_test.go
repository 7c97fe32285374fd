package integrators

import (
	"testing"

	"github.com/san-kum/stiffsim/internal/dynamo"
	"github.com/san-kum/stiffsim/internal/physics"
)

func benchSolver(b *testing.B, f Factory, prov dynamo.Provider, y0 dynamo.State, p dynamo.Params, dt float64) {
	s := f(prov, DefaultTolerances())
	s.SetParams(p)
	if err := s.SetInitialValue(y0, 0); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := s.Advance(dt); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEuler(b *testing.B) {
	benchSolver(b, NewEuler, &harmonicOscillator{}, dynamo.State{1, 0}, nil, 0.01)
}

func BenchmarkRK4(b *testing.B) {
	benchSolver(b, NewRK4, &harmonicOscillator{}, dynamo.State{1, 0}, nil, 0.01)
}

func BenchmarkDopri5(b *testing.B) {
	benchSolver(b, NewDopri5, &harmonicOscillator{}, dynamo.State{1, 0}, nil, 0.01)
}

func BenchmarkBDF(b *testing.B) {
	benchSolver(b, NewBDF, &harmonicOscillator{}, dynamo.State{1, 0}, nil, 0.01)
}

func BenchmarkBDFVanDerPol(b *testing.B) {
	vdp := physics.NewVanDerPol()
	benchSolver(b, NewBDF, vdp, vdp.DefaultState(), dynamo.Params{1000}, 1e-3)
}

func BenchmarkDopri5CSPTest(b *testing.B) {
	m := physics.NewCSPTest()
	benchSolver(b, NewDopri5, m, m.DefaultState(), m.DefaultParams(), 1e-4)
}
