package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveStep("stiff", "bdf", time.Millisecond, 12)
	m.ObserveStep("stiff", "bdf", time.Millisecond, 8)
	m.Switch("stiff", "nonstiff")
	m.SolverFailure("dopri5")
	m.Job(time.Second, nil)
	m.Job(time.Second, errors.New("boom"))

	if got := testutil.ToFloat64(m.steps.WithLabelValues("stiff")); got != 2 {
		t.Errorf("steps = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.work.WithLabelValues("bdf")); got != 20 {
		t.Errorf("work = %v, want 20", got)
	}
	if got := testutil.ToFloat64(m.switches.WithLabelValues("stiff", "nonstiff")); got != 1 {
		t.Errorf("switches = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.jobs.WithLabelValues("error")); got != 1 {
		t.Errorf("failed jobs = %v, want 1", got)
	}
	if n, err := testutil.GatherAndCount(reg); err != nil || n == 0 {
		t.Errorf("GatherAndCount = %d, %v", n, err)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveStep("stiff", "bdf", time.Millisecond, 1)
	m.Switch("a", "b")
	m.SolverFailure("bdf")
	m.Job(0, nil)
}
