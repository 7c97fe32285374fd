package stiffness

import (
	"fmt"

	"github.com/san-kum/stiffsim/internal/dynamo"
)

// Metric names a stiffness measure.
type Metric string

const (
	MetricIndex     Metric = "index"
	MetricIndicator Metric = "indicator"
	MetricRatio     Metric = "ratio"
	MetricCEMA      Metric = "cema"
)

func Metrics() []Metric {
	return []Metric{MetricIndex, MetricIndicator, MetricRatio, MetricCEMA}
}

func ParseMetric(s string) (Metric, error) {
	for _, m := range Metrics() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown metric %q: %w", s, dynamo.ErrParameterBounds)
}

// Pointwise reports whether m can be evaluated from a single state.
func (m Metric) Pointwise() bool {
	return m != MetricIndex
}

// At evaluates a pointwise metric at (t, y).
func (m Metric) At(prov dynamo.Provider, t float64, y dynamo.State, p dynamo.Params) (float64, error) {
	switch m {
	case MetricIndicator:
		return IndicatorAt(prov, t, y, p)
	case MetricRatio:
		return RatioAt(prov, t, y, p)
	case MetricCEMA:
		return CEMAAt(prov, t, y, p)
	}
	return 0, fmt.Errorf("metric %q needs a trajectory: %w", m, dynamo.ErrParameterBounds)
}

// Evaluate computes m at every sample of a trajectory. Index options are
// ignored by the pointwise metrics.
func Evaluate(m Metric, times []float64, sol []dynamo.State, prov dynamo.Provider, p dynamo.Params, opts ...IndexOption) ([]float64, error) {
	if m == MetricIndex {
		return Index(times, sol, prov, p, opts...)
	}
	return pointwise(times, sol, func(t float64, y dynamo.State) (float64, error) {
		return m.At(prov, t, y, p)
	})
}

func pointwise(times []float64, sol []dynamo.State, f func(float64, dynamo.State) (float64, error)) ([]float64, error) {
	if len(times) != len(sol) {
		return nil, fmt.Errorf("%d times, %d states: %w", len(times), len(sol), dynamo.ErrDimensionMismatch)
	}
	out := make([]float64, len(sol))
	for i := range sol {
		v, err := f(times[i], sol[i])
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
