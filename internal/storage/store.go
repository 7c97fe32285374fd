package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/stiffsim/internal/controller"
	"github.com/san-kum/stiffsim/internal/experiment"
)

// File names inside a run directory.
const (
	MetadataFile = "metadata.json"
	SolutionFile = "solution.csv"
	StepsFile    = "steps.csv"
	CSPFile      = "csp.csv"
	EnsembleFile = "ensemble.csv"
)

// CompareFile is the per-solver comparison table name.
func CompareFile(solver string) string { return "compare_" + solver + ".csv" }

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// Dir is the directory of a run.
func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

type RunMetadata struct {
	ID             string             `json:"id"`
	Kind           string             `json:"kind"`
	Equation       string             `json:"equation"`
	Metric         string             `json:"metric"`
	Timestamp      time.Time          `json:"timestamp"`
	Dt             float64            `json:"dt"`
	TStart         float64            `json:"t_start"`
	TStop          float64            `json:"t_stop"`
	StiffSolver    string             `json:"stiff_solver,omitempty"`
	NonStiffSolver string             `json:"nonstiff_solver,omitempty"`
	Params         []float64          `json:"params,omitempty"`
	Files          []string           `json:"files"`
	Summary        map[string]float64 `json:"summary,omitempty"`
}

// NewRunID returns "<equation>_<8 hex chars>".
func NewRunID(equation string) string {
	return fmt.Sprintf("%s_%s", equation, uuid.NewString()[:8])
}

// MetadataFor fills the common metadata fields from an experiment.
func MetadataFor(kind string, exp *experiment.Experiment) RunMetadata {
	cfg := exp.Config()
	return RunMetadata{
		Kind:           kind,
		Equation:       cfg.Equation,
		Metric:         string(exp.Metric),
		Dt:             cfg.Dt,
		TStart:         cfg.TStart,
		TStop:          cfg.TStop,
		StiffSolver:    cfg.StiffSolver,
		NonStiffSolver: cfg.NonStiffSolver,
		Params:         exp.Params,
		Summary:        make(map[string]float64),
	}
}

// Create allocates a run directory and returns its ID. The metadata is
// written by Finish once all tables are in place.
func (s *Store) Create(equation string) (string, error) {
	runID := NewRunID(equation)
	if err := os.MkdirAll(s.Dir(runID), 0755); err != nil {
		return "", err
	}
	return runID, nil
}

// Finish writes metadata.json, listing every file present in the run
// directory.
func (s *Store) Finish(runID string, meta RunMetadata) error {
	meta.ID = runID
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	entries, err := os.ReadDir(s.Dir(runID))
	if err != nil {
		return err
	}
	meta.Files = meta.Files[:0]
	for _, e := range entries {
		if !e.IsDir() && e.Name() != MetadataFile {
			meta.Files = append(meta.Files, e.Name())
		}
	}

	f, err := os.Create(filepath.Join(s.Dir(runID), MetadataFile))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func (s *Store) writeTable(runID, name string, header []string, rows [][]string) error {
	f, err := os.Create(filepath.Join(s.Dir(runID), name))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// SaveRun writes the trajectory of an adaptive run to solution.csv and
// the per-step controller record to steps.csv.
func (s *Store) SaveRun(runID string, res *experiment.RunResult) error {
	if res.Len() == 0 {
		return nil
	}
	header := []string{"time"}
	for i := range res.States[0] {
		header = append(header, fmt.Sprintf("y%d", i))
	}
	rows := make([][]string, res.Len())
	for i, y := range res.States {
		row := []string{formatFloat(res.Times[i])}
		for _, v := range y {
			row = append(row, formatFloat(v))
		}
		rows[i] = row
	}
	if err := s.writeTable(runID, SolutionFile, header, rows); err != nil {
		return err
	}

	header = []string{"step", "time", "mode", "indicator", "monitor", string(res.Metric), "timescale", "wall_ns", "work"}
	rows = make([][]string, res.Len())
	for i := range rows {
		metric, scale := "", ""
		if i < len(res.Values) {
			metric = formatFloat(res.Values[i])
		}
		if i < len(res.Timescales) {
			scale = formatFloat(res.Timescales[i])
		}
		rows[i] = []string{
			strconv.Itoa(i),
			formatFloat(res.Times[i]),
			res.Modes[i].String(),
			formatFloat(res.Indicators[i]),
			formatFloat(res.Monitors[i]),
			metric,
			scale,
			strconv.FormatInt(res.WallTimes[i].Nanoseconds(), 10),
			strconv.Itoa(res.Work[i]),
		}
	}
	return s.writeTable(runID, StepsFile, header, rows)
}

// SaveComparison writes compare_<solver>.csv.
func (s *Store) SaveComparison(runID string, cmp *experiment.Comparison) error {
	header := []string{"step", "time", "ratio", "indicator", "cema", "wall_ns", "work"}
	rows := make([][]string, len(cmp.Rows))
	for i, r := range cmp.Rows {
		rows[i] = []string{
			strconv.Itoa(r.Step),
			formatFloat(r.Time),
			formatFloat(r.Ratio),
			formatFloat(r.Indicator),
			formatFloat(r.CEMA),
			strconv.FormatInt(r.Wall.Nanoseconds(), 10),
			strconv.Itoa(r.Work),
		}
	}
	return s.writeTable(runID, CompareFile(cmp.Solver), header, rows)
}

// SaveCSP writes the per-step slow-manifold record to csp.csv.
func (s *Store) SaveCSP(runID string, run *experiment.CSPRun) error {
	header := []string{"step", "time", "m", "tau_m1", "stiffness"}
	if len(run.Steps) > 0 {
		for i := range run.Steps[0].State {
			header = append(header, fmt.Sprintf("y%d", i))
		}
	}
	rows := make([][]string, len(run.Steps))
	for i, st := range run.Steps {
		row := []string{
			strconv.Itoa(st.Step),
			formatFloat(st.Time),
			strconv.Itoa(st.M),
			formatFloat(st.TauM1),
			formatFloat(st.Stiffness),
		}
		for _, v := range st.State {
			row = append(row, formatFloat(v))
		}
		rows[i] = row
	}
	return s.writeTable(runID, CSPFile, header, rows)
}

// SaveEnsemble writes ensemble.csv; failed points keep their error text
// and leave the numeric columns empty.
func (s *Store) SaveEnsemble(runID string, metric string, rows []experiment.EnsembleRow) error {
	header := []string{"timestep", "particle", metric, "mode", "wall_ns", "work", "error"}
	out := make([][]string, len(rows))
	for i, r := range rows {
		if r.Err != nil {
			out[i] = []string{strconv.Itoa(r.Timestep), strconv.Itoa(r.Particle), "", "", "", "", r.Err.Error()}
			continue
		}
		out[i] = []string{
			strconv.Itoa(r.Timestep),
			strconv.Itoa(r.Particle),
			formatFloat(r.Metric),
			r.Mode.String(),
			strconv.FormatInt(r.Wall.Nanoseconds(), 10),
			strconv.Itoa(r.Work),
			"",
		}
	}
	return s.writeTable(runID, EnsembleFile, header, out)
}

// List returns all runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), MetadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Table is a CSV file of a run, read back as a header and string rows.
type Table struct {
	Header []string
	Rows   [][]string
}

func (s *Store) LoadTable(runID, name string) (*Table, error) {
	f, err := os.Open(filepath.Join(s.Dir(runID), name))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", runID, name, err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}
	return &Table{Header: records[0], Rows: records[1:]}, nil
}

// Column parses the named column as floats, skipping empty cells.
func (t *Table) Column(name string) ([]float64, error) {
	idx := -1
	for i, h := range t.Header {
		if h == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("no column %q", name)
	}
	out := make([]float64, 0, len(t.Rows))
	for _, row := range t.Rows {
		if idx >= len(row) || row[idx] == "" {
			continue
		}
		v, err := strconv.ParseFloat(row[idx], 64)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// LoadSolution reads solution.csv back into times and states.
func (s *Store) LoadSolution(runID string) ([]float64, [][]float64, error) {
	t, err := s.LoadTable(runID, SolutionFile)
	if err != nil {
		return nil, nil, err
	}
	times := make([]float64, 0, len(t.Rows))
	states := make([][]float64, 0, len(t.Rows))
	for i, row := range t.Rows {
		if len(row) == 0 {
			continue
		}
		vals := make([]float64, len(row))
		for j, cell := range row {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("%s row %d: %w", SolutionFile, i+1, err)
			}
			vals[j] = v
		}
		times = append(times, vals[0])
		states = append(states, vals[1:])
	}
	return times, states, nil
}

// Modes reads the mode column of steps.csv.
func (s *Store) Modes(runID string) ([]controller.Mode, error) {
	t, err := s.LoadTable(runID, StepsFile)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i, h := range t.Header {
		if h == "mode" {
			idx = i
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%s has no mode column", StepsFile)
	}
	modes := make([]controller.Mode, 0, len(t.Rows))
	for _, row := range t.Rows {
		m, err := controller.ParseMode(row[idx])
		if err != nil {
			return nil, err
		}
		modes = append(modes, m)
	}
	return modes, nil
}
