package controller

import (
	"fmt"
	"strings"

	"github.com/san-kum/stiffsim/internal/dynamo"
)

type Mode int

const (
	Stiff Mode = iota
	NonStiff
)

func (m Mode) String() string {
	switch m {
	case Stiff:
		return "stiff"
	case NonStiff:
		return "nonstiff"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "stiff":
		return Stiff, nil
	case "nonstiff", "non-stiff":
		return NonStiff, nil
	}
	return Stiff, fmt.Errorf("unknown mode %q: %w", s, dynamo.ErrParameterBounds)
}

// Policy holds the switching thresholds.
type Policy struct {
	IndicatorThreshold float64
	MonitorThreshold   float64
	// MonitorIndex selects the state component compared against
	// MonitorThreshold.
	MonitorIndex int
}

func DefaultPolicy() Policy {
	return Policy{
		IndicatorThreshold: 0,
		MonitorThreshold:   1e4,
		MonitorIndex:       0,
	}
}

// Next returns the mode for the following step. Both predicates see the
// same indicator and monitor values.
func (p Policy) Next(m Mode, indicator, monitor float64) Mode {
	switch m {
	case Stiff:
		if indicator > p.IndicatorThreshold && monitor < p.MonitorThreshold {
			return NonStiff
		}
	case NonStiff:
		if indicator <= p.IndicatorThreshold || monitor >= p.MonitorThreshold {
			return Stiff
		}
	}
	return m
}

// Reason names the predicate that triggered a move from m.
func (p Policy) Reason(m Mode, indicator, monitor float64) string {
	if m == Stiff {
		return "indicator above threshold, monitor below limit"
	}
	if monitor >= p.MonitorThreshold {
		return "monitor at or above limit"
	}
	return "indicator at or below threshold"
}
