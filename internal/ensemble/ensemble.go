// Package ensemble runs independent jobs on a bounded worker pool and
// gathers their results by index.
package ensemble

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/stiffsim/internal/telemetry"
)

// Outcome is the result of one job. Err is the job's own failure; a failed
// job never stops the others.
type Outcome[R any] struct {
	Value    R
	Err      error
	Duration time.Duration
	// Skipped is set for jobs never submitted because ctx ended.
	Skipped bool
}

type Options struct {
	Workers int
	Metrics *telemetry.Metrics
}

// Run calls fn for every job with at most opts.Workers in flight and
// returns outcomes in job order. Once ctx is done no further jobs are
// submitted; running jobs finish and the remainder are marked Skipped.
// The returned error is ctx's error, if any.
func Run[J, R any](ctx context.Context, jobs []J, opts Options, fn func(context.Context, J) (R, error)) ([]Outcome[R], error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	out := make([]Outcome[R], len(jobs))

	var g errgroup.Group
	g.SetLimit(workers)

	submitted := 0
	for i, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		submitted++
		g.Go(func() error {
			start := time.Now()
			v, err := fn(ctx, job)
			d := time.Since(start)
			out[i] = Outcome[R]{Value: v, Err: err, Duration: d}
			opts.Metrics.Job(d, err)
			return nil
		})
	}
	_ = g.Wait()

	for i := submitted; i < len(out); i++ {
		out[i].Skipped = true
	}
	return out, ctx.Err()
}

// Errors returns the job errors in order, skipping successes.
func Errors[R any](outs []Outcome[R]) []error {
	var errs []error
	for _, o := range outs {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errs
}
