package pasr

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/san-kum/stiffsim/internal/dynamo"
)

const sample = `timestep,particle,temperature,pressure,Y_F,Y_N2,Y_O,Y_P
# two particles at two timesteps
0,0,1000,101325,0.05,0.73,0.22,0
0,1,1100,101325,0.04,0.73,0.20,0.03
1,0,1050,101325,0.045,0.73,0.21,0.015
1,1,1200,101325,0.03,0.73,0.18,0.06
`

func TestLoad(t *testing.T) {
	d, err := Load(strings.NewReader(sample))
	if err != nil {
		t.Fatal(err)
	}
	if d.Len() != 4 {
		t.Fatalf("Len = %d, want 4", d.Len())
	}
	rec, err := d.At(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Temperature != 1200 || rec.Pressure != 101325 || len(rec.Species) != 4 {
		t.Errorf("record = %+v", rec)
	}
	if !reflect.DeepEqual(d.Timesteps(), []int{0, 1}) || !reflect.DeepEqual(d.Particles(), []int{0, 1}) {
		t.Errorf("timesteps %v, particles %v", d.Timesteps(), d.Particles())
	}
	if _, err := d.At(5, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"short row", "0,0,1000,101325\n"},
		{"bad number", "0,0,hot,101325,0.1\n"},
		{"ragged species", "0,0,1000,1,0.1,0.2\n0,1,1000,1,0.1\n"},
		{"duplicate", "0,0,1000,1,0.1\n0,0,1000,1,0.1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(strings.NewReader(tt.in)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	lines := strings.Split(strings.TrimSpace(sample), "\n")
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	os.WriteFile(a, []byte(strings.Join(lines[:4], "\n")), 0644)
	os.WriteFile(b, []byte(strings.Join(lines[4:], "\n")), 0644)

	d, err := LoadFiles(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if d.Len() != 4 {
		t.Errorf("Len = %d, want 4", d.Len())
	}
	if _, err := d.At(1, 0); err != nil {
		t.Error(err)
	}
}

func TestRearrange(t *testing.T) {
	rec := Record{Temperature: 1000, Pressure: 2e5, Species: []float64{0.05, 0.73, 0.22, 0}}

	y, p, err := Rearrange(rec, 1, true)
	if err != nil {
		t.Fatal(err)
	}
	want := dynamo.State{1000, 0.05, 0.22, 0, 0.73}
	if !reflect.DeepEqual(y, want) {
		t.Errorf("keep inert: got %v, want %v", y, want)
	}
	if !reflect.DeepEqual(p, dynamo.Params{2e5}) {
		t.Errorf("params = %v", p)
	}

	y, _, err = Rearrange(rec, 1, false)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(y, dynamo.State{1000, 0.05, 0.22, 0}) {
		t.Errorf("drop inert: got %v", y)
	}
	if rec.Species[1] != 0.73 {
		t.Error("record species mutated")
	}

	y, _, _ = Rearrange(rec, -1, false)
	if len(y) != 5 {
		t.Errorf("no inert: got %v", y)
	}

	if _, _, err := Rearrange(rec, 9, false); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}
