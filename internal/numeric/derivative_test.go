package numeric

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/stiffsim/internal/dynamo"
)

func linearSamples(n int, dx float64) []dynamo.State {
	vals := make([]dynamo.State, n)
	for i := range vals {
		x := float64(i) * dx
		vals[i] = dynamo.State{3*x + 1, -2 * x}
	}
	return vals
}

func TestDerivativeLinear(t *testing.T) {
	for _, n := range []int{4, 5, 6, 10} {
		d, err := Derivative(linearSamples(n, 0.1), 0.1)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if len(d) != n {
			t.Fatalf("n=%d: got %d samples", n, len(d))
		}
		for i, v := range d {
			if math.Abs(v[0]-3) > 1e-10 || math.Abs(v[1]+2) > 1e-10 {
				t.Errorf("n=%d sample %d: got %v, want [3 -2]", n, i, v)
			}
		}
	}
}

func TestDerivativeQuadraticInterior(t *testing.T) {
	dx := 0.05
	vals := make([]dynamo.State, 12)
	for i := range vals {
		x := float64(i) * dx
		vals[i] = dynamo.State{x * x}
	}
	d, err := Derivative(vals, dx)
	if err != nil {
		t.Fatal(err)
	}
	for i := range d {
		want := 2 * float64(i) * dx
		if math.Abs(d[i][0]-want) > 1e-10 {
			t.Errorf("sample %d: got %v, want %v", i, d[i][0], want)
		}
	}
}

func TestDerivativeN(t *testing.T) {
	dx := 0.1
	vals := make([]dynamo.State, 20)
	for i := range vals {
		x := float64(i) * dx
		vals[i] = dynamo.State{x * x}
	}
	d, err := DerivativeN(vals, dx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(d) != len(vals) {
		t.Fatalf("length changed: %d", len(d))
	}
	for i := 4; i < len(d)-4; i++ {
		if math.Abs(d[i][0]-2) > 1e-8 {
			t.Errorf("sample %d: got %v, want 2", i, d[i][0])
		}
	}
}

func TestDerivativeTooFew(t *testing.T) {
	_, err := Derivative(linearSamples(3, 0.1), 0.1)
	if !errors.Is(err, dynamo.ErrTooFewSamples) {
		t.Errorf("expected ErrTooFewSamples, got %v", err)
	}
}

func TestUniformStep(t *testing.T) {
	dx, err := UniformStep([]float64{0, 0.1, 0.2, 0.3})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(dx-0.1) > 1e-15 {
		t.Errorf("dx = %v", dx)
	}

	_, err = UniformStep([]float64{0, 0.1, 0.3})
	if !errors.Is(err, dynamo.ErrNonUniformStep) {
		t.Errorf("expected ErrNonUniformStep, got %v", err)
	}
}
