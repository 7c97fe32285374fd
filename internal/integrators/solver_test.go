package integrators

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/stiffsim/internal/dynamo"
	"github.com/san-kum/stiffsim/internal/physics"
)

type harmonicOscillator struct{}

func (h *harmonicOscillator) Dim() int { return 2 }

func (h *harmonicOscillator) Derive(_ float64, x dynamo.State, _ dynamo.Params) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func (h *harmonicOscillator) Jacobian(float64, dynamo.State, dynamo.Params) *mat.Dense {
	return mat.NewDense(2, 2, []float64{0, 1, -1, 0})
}

// decay is y' = -λy, stiff for large λ.
type decay struct{ lambda float64 }

func (d decay) Dim() int { return 1 }

func (d decay) Derive(_ float64, y dynamo.State, _ dynamo.Params) dynamo.State {
	return dynamo.State{-d.lambda * y[0]}
}

func (d decay) Jacobian(float64, dynamo.State, dynamo.Params) *mat.Dense {
	return mat.NewDense(1, 1, []float64{-d.lambda})
}

func advance(t *testing.T, s Solver, dt float64, steps int) dynamo.State {
	t.Helper()
	var y dynamo.State
	var err error
	for i := 0; i < steps; i++ {
		_, y, err = s.Advance(dt)
		if err != nil {
			t.Fatalf("%s: step %d: %v", s.Name(), i, err)
		}
	}
	return y
}

func TestAccuracy(t *testing.T) {
	tests := []struct {
		name    string
		factory Factory
		tol     float64
	}{
		{"dopri5", NewDopri5, 1e-5},
		{"rk4", NewRK4, 1e-4},
		{"bdf", NewBDF, 5e-3},
		{"euler", NewEuler, 5e-2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.factory(&harmonicOscillator{}, DefaultTolerances())
			if err := s.SetInitialValue(dynamo.State{1, 0}, 0); err != nil {
				t.Fatal(err)
			}
			dt := 0.01
			steps := 100
			x := advance(t, s, dt, steps)

			if math.Abs(s.Time()-1) > 1e-12 {
				t.Errorf("time = %v, want 1", s.Time())
			}
			if math.Abs(x[0]-math.Cos(1)) > tt.tol {
				t.Errorf("position error too large: got %.6f, expected %.6f", x[0], math.Cos(1))
			}
			if math.Abs(x[1]+math.Sin(1)) > tt.tol {
				t.Errorf("velocity error too large: got %.6f, expected %.6f", x[1], -math.Sin(1))
			}
			if !s.Successful() {
				t.Error("solver reports failure")
			}
		})
	}
}

func TestDopri5EnergyConservation(t *testing.T) {
	s := NewDopri5(&harmonicOscillator{}, Tolerances{Abs: 1e-12, Rel: 1e-10})
	if err := s.SetInitialValue(dynamo.State{1, 0}, 0); err != nil {
		t.Fatal(err)
	}
	x := advance(t, s, 0.1, 1000)

	energy := 0.5 * (x[0]*x[0] + x[1]*x[1])
	if drift := math.Abs(energy - 0.5); drift > 1e-6 {
		t.Errorf("dopri5 energy drift too high: %e", drift)
	}
}

func TestBDFStiffDecay(t *testing.T) {
	prov := decay{lambda: 1e6}
	stiff := NewBDF(prov, DefaultTolerances())
	explicit := NewDopri5(prov, DefaultTolerances())
	for _, s := range []Solver{stiff, explicit} {
		if err := s.SetInitialValue(dynamo.State{1}, 0); err != nil {
			t.Fatal(err)
		}
		advance(t, s, 0.01, 10)
		if y := s.State()[0]; math.Abs(y) > 1e-6 {
			t.Errorf("%s: y(0.1) = %v, want ≈ 0", s.Name(), y)
		}
	}

	// An explicit method is stability-bound on this problem.
	if stiff.Stats().Work() >= explicit.Stats().Work() {
		t.Errorf("bdf work %d should be below dopri5 work %d",
			stiff.Stats().Work(), explicit.Stats().Work())
	}
}

func TestBDFFiniteDifferenceJacobian(t *testing.T) {
	tol := DefaultTolerances()
	tol.UseJacobian = false
	s := NewBDF(decay{lambda: 50}, tol)
	if err := s.SetInitialValue(dynamo.State{1}, 0); err != nil {
		t.Fatal(err)
	}
	y := advance(t, s, 0.01, 10)
	if math.Abs(y[0]-math.Exp(-5)) > 1e-3 {
		t.Errorf("y(0.1) = %v, want %v", y[0], math.Exp(-5))
	}
	if s.Stats().JacobianEvals != 0 {
		t.Errorf("analytic Jacobian used %d times", s.Stats().JacobianEvals)
	}
}

func TestFiniteDifferenceJacobian(t *testing.T) {
	vdp := physics.NewVanDerPol()
	y := dynamo.State{0.5, -1}
	p := dynamo.Params{10}
	got := FiniteDifferenceJacobian(vdp, 0, y, p)
	want := vdp.Jacobian(0, y, p)
	if !mat.EqualApprox(got, want, 1e-4) {
		t.Errorf("finite difference Jacobian\n%v\nwant\n%v", mat.Formatted(got), mat.Formatted(want))
	}
}

func TestDopri5MaxSteps(t *testing.T) {
	s := NewDopri5(decay{lambda: 1e8}, Tolerances{Abs: 1e-10, Rel: 1e-10, MaxSteps: 10})
	if err := s.SetInitialValue(dynamo.State{1}, 0); err != nil {
		t.Fatal(err)
	}
	_, _, err := s.Advance(1)
	if !errors.Is(err, dynamo.ErrSolverFailed) {
		t.Fatalf("expected ErrSolverFailed, got %v", err)
	}
	if s.Successful() {
		t.Error("Successful() should be false after failure")
	}
}

func TestAdvanceWithoutInitialValue(t *testing.T) {
	s := NewRK4(&harmonicOscillator{}, DefaultTolerances())
	if _, _, err := s.Advance(0.1); !errors.Is(err, dynamo.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestSetInitialValueDimension(t *testing.T) {
	s := NewBDF(&harmonicOscillator{}, DefaultTolerances())
	if err := s.SetInitialValue(dynamo.State{1, 2, 3}, 0); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestStateIsCopied(t *testing.T) {
	s := NewRK4(&harmonicOscillator{}, DefaultTolerances())
	y0 := dynamo.State{1, 0}
	if err := s.SetInitialValue(y0, 0); err != nil {
		t.Fatal(err)
	}
	_, y, _ := s.Advance(0.1)
	y[0] = 42
	if y0[0] != 1 || s.State()[0] == 42 {
		t.Error("solver shares state with caller")
	}
}

func TestLookup(t *testing.T) {
	for _, name := range Names() {
		if _, err := Lookup(name); err != nil {
			t.Errorf("Lookup(%q): %v", name, err)
		}
	}
	if _, err := Lookup("adams"); err == nil {
		t.Error("expected error for unknown solver")
	}
	if !Stiff("bdf") || Stiff("dopri5") {
		t.Error("Stiff classification wrong")
	}
}
