package storage

import (
	"encoding/json"
	"io"
)

type ExportData struct {
	RunMetadata
	Steps  int         `json:"steps"`
	Times  []float64   `json:"times"`
	States [][]float64 `json:"states"`
	Modes  []string    `json:"modes,omitempty"`
}

// Export writes a run's metadata and trajectory as indented JSON.
func (s *Store) Export(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	times, states, err := s.LoadSolution(runID)
	if err != nil {
		return err
	}
	data := ExportData{
		RunMetadata: *meta,
		Steps:       len(times),
		Times:       times,
		States:      states,
	}
	if modes, err := s.Modes(runID); err == nil {
		data.Modes = make([]string, len(modes))
		for i, m := range modes {
			data.Modes[i] = m.String()
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
