// Package telemetry exposes Prometheus instruments for adaptive runs and
// ensemble sweeps. Instruments live on an explicit registry; a nil
// *Metrics is a valid no-op.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "stiffsim"

type Metrics struct {
	steps       *prometheus.CounterVec
	switches    *prometheus.CounterVec
	failures    *prometheus.CounterVec
	work        *prometheus.CounterVec
	stepSeconds *prometheus.HistogramVec
	jobs        *prometheus.CounterVec
	jobSeconds  prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// steps counts accepted controller steps.
		// Labels: mode (stiff, nonstiff)
		steps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "steps_total",
			Help:      "Accepted controller steps by active mode",
		}, []string{"mode"}),

		// Labels: from, to
		switches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "switches_total",
			Help:      "Solver switches between stiff and non-stiff mode",
		}, []string{"from", "to"}),

		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "solver_failures_total",
			Help:      "Solver steps that failed to complete",
		}, []string{"solver"}),

		work: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "evaluations_total",
			Help:      "Right-hand-side and Jacobian evaluations",
		}, []string{"solver"}),

		stepSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "step_duration_seconds",
			Help:      "Wall time of one controller step",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}, []string{"solver"}),

		// Labels: outcome (ok, error)
		jobs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ensemble",
			Name:      "jobs_total",
			Help:      "Completed ensemble jobs by outcome",
		}, []string{"outcome"}),

		jobSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ensemble",
			Name:      "job_duration_seconds",
			Help:      "Wall time of one ensemble job",
			Buckets:   prometheus.ExponentialBuckets(1e-4, 4, 10),
		}),
	}
}

func (m *Metrics) ObserveStep(mode, solver string, d time.Duration, work int) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(mode).Inc()
	m.stepSeconds.WithLabelValues(solver).Observe(d.Seconds())
	m.work.WithLabelValues(solver).Add(float64(work))
}

func (m *Metrics) Switch(from, to string) {
	if m == nil {
		return
	}
	m.switches.WithLabelValues(from, to).Inc()
}

func (m *Metrics) SolverFailure(solver string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(solver).Inc()
}

func (m *Metrics) Job(d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.jobs.WithLabelValues(outcome).Inc()
	m.jobSeconds.Observe(d.Seconds())
}
