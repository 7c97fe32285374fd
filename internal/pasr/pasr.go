// Package pasr loads partially-stirred-reactor snapshots used as initial
// conditions for ensemble sweeps.
//
// Each CSV row is one (timestep, particle) sample:
//
//	timestep,particle,temperature,pressure,Y_0,Y_1,...
//
// A header row and lines starting with '#' are ignored.
package pasr

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/stiffsim/internal/dynamo"
)

var ErrNotFound = errors.New("pasr: sample not found")

type Record struct {
	Timestep    int
	Particle    int
	Temperature float64
	Pressure    float64
	Species     []float64
}

type key struct{ timestep, particle int }

type Data struct {
	Records []Record
	index   map[key]int
}

func Load(r io.Reader) (*Data, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	d := &Data{index: make(map[key]int)}
	width := -1
	for line := 1; ; line++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("pasr line %d: %w", line, err)
		}
		if line == 1 && isHeader(fields) {
			continue
		}
		rec, err := parse(fields)
		if err != nil {
			return nil, fmt.Errorf("pasr line %d: %w", line, err)
		}
		if width >= 0 && len(rec.Species) != width {
			return nil, fmt.Errorf("pasr line %d: %d species, want %d: %w",
				line, len(rec.Species), width, dynamo.ErrDimensionMismatch)
		}
		width = len(rec.Species)
		k := key{rec.Timestep, rec.Particle}
		if _, dup := d.index[k]; dup {
			return nil, fmt.Errorf("pasr line %d: duplicate sample (%d, %d)", line, rec.Timestep, rec.Particle)
		}
		d.index[k] = len(d.Records)
		d.Records = append(d.Records, rec)
	}
	return d, nil
}

// LoadFiles concatenates several snapshot files.
func LoadFiles(paths ...string) (*Data, error) {
	all := &Data{index: make(map[key]int)}
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		d, err := Load(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		for _, rec := range d.Records {
			k := key{rec.Timestep, rec.Particle}
			if _, dup := all.index[k]; dup {
				return nil, fmt.Errorf("%s: duplicate sample (%d, %d)", p, rec.Timestep, rec.Particle)
			}
			all.index[k] = len(all.Records)
			all.Records = append(all.Records, rec)
		}
	}
	return all, nil
}

func isHeader(fields []string) bool {
	if len(fields) == 0 {
		return false
	}
	_, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	return err != nil
}

func parse(fields []string) (Record, error) {
	if len(fields) < 5 {
		return Record{}, fmt.Errorf("%d fields, need at least 5", len(fields))
	}
	ts, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return Record{}, fmt.Errorf("timestep: %w", err)
	}
	pt, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return Record{}, fmt.Errorf("particle: %w", err)
	}
	vals := make([]float64, len(fields)-2)
	for i, f := range fields[2:] {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return Record{}, fmt.Errorf("column %d: %w", i+3, err)
		}
		vals[i] = v
	}
	return Record{
		Timestep:    ts,
		Particle:    pt,
		Temperature: vals[0],
		Pressure:    vals[1],
		Species:     vals[2:],
	}, nil
}

func (d *Data) Len() int { return len(d.Records) }

func (d *Data) At(timestep, particle int) (Record, error) {
	i, ok := d.index[key{timestep, particle}]
	if !ok {
		return Record{}, fmt.Errorf("(%d, %d): %w", timestep, particle, ErrNotFound)
	}
	return d.Records[i], nil
}

func (d *Data) Timesteps() []int {
	return d.distinct(func(r Record) int { return r.Timestep })
}

func (d *Data) Particles() []int {
	return d.distinct(func(r Record) int { return r.Particle })
}

func (d *Data) distinct(f func(Record) int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, r := range d.Records {
		v := f(r)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}

// Rearrange turns a record into a state [T, Y...] and the pressure
// parameter. The species at inertIndex is moved to the end, and dropped
// unless keepInert is set. A negative inertIndex leaves the order alone.
func Rearrange(rec Record, inertIndex int, keepInert bool) (dynamo.State, dynamo.Params, error) {
	species := append([]float64(nil), rec.Species...)
	if inertIndex >= 0 {
		if inertIndex >= len(species) {
			return nil, nil, fmt.Errorf("inert index %d for %d species: %w",
				inertIndex, len(species), dynamo.ErrDimensionMismatch)
		}
		inert := species[inertIndex]
		copy(species[inertIndex:], species[inertIndex+1:])
		species[len(species)-1] = inert
		if !keepInert {
			species = species[:len(species)-1]
		}
	}
	y := make(dynamo.State, 0, len(species)+1)
	y = append(y, rec.Temperature)
	y = append(y, species...)
	return y, dynamo.Params{rec.Pressure}, nil
}
