package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/stiffsim/internal/controller"
	"github.com/san-kum/stiffsim/internal/experiment"
	"github.com/san-kum/stiffsim/internal/logging"
	"github.com/san-kum/stiffsim/internal/pasr"
	"github.com/san-kum/stiffsim/internal/stiffness"
	"github.com/san-kum/stiffsim/internal/storage"
	"github.com/san-kum/stiffsim/internal/viz"
)

func buildExperiment(cmd *cobra.Command, args []string, extra ...experiment.Option) (*experiment.Experiment, error) {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return nil, err
	}
	opts := append([]experiment.Option{
		experiment.WithLogger(slog.Default()),
		experiment.WithMetrics(metrics),
	}, extra...)
	return experiment.Build(cfg, opts...)
}

func openStore() (*storage.Store, error) {
	st := storage.New(dataDir)
	return st, st.Init()
}

func runAdaptive(cmd *cobra.Command, args []string) error {
	defer startMetrics()()
	exp, err := buildExperiment(cmd, args)
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}

	cfg := exp.Config()
	fmt.Printf("running %s from t=%g to t=%g (dt=%g)...\n", cfg.Equation, cfg.TStart, cfg.TStop, cfg.Dt)
	start := time.Now()
	res, err := exp.Run(cmd.Context())
	if err != nil && res == nil {
		return err
	}
	elapsed := time.Since(start)

	runID, serr := st.Create(cfg.Equation)
	if serr != nil {
		return serr
	}
	if serr := st.SaveRun(runID, res); serr != nil {
		return serr
	}
	meta := storage.MetadataFor("run", exp)
	meta.Summary["steps"] = float64(res.Len() - 1)
	meta.Summary["switches"] = float64(len(res.Switches))
	meta.Summary["work"] = float64(res.TotalWork())
	meta.Summary["wall_seconds"] = res.TotalWall().Seconds()
	if serr := st.Finish(runID, meta); serr != nil {
		return serr
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d  switches: %d  work: %d  solver time: %v\n",
		res.Len()-1, len(res.Switches), res.TotalWork(), res.TotalWall().Round(time.Microsecond))
	if len(res.Switches) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "\nSTEP\tTIME\tFROM\tTO\tINDICATOR\tMONITOR")
		for _, sw := range res.Switches {
			fmt.Fprintf(w, "%d\t%.6g\t%s\t%s\t%.4g\t%.4g\n", sw.Step, sw.Time, sw.From, sw.To, sw.Indicator, sw.Monitor)
		}
		w.Flush()
	}
	if len(res.Values) > 0 {
		lo, hi := minMax(res.Values)
		fmt.Printf("\n%s: min %.4g  max %.4g\n", res.Metric, lo, hi)
	}
	if res.Err != nil {
		return fmt.Errorf("run stopped early (partial result saved): %w", res.Err)
	}
	return err
}

func showMetrics(cmd *cobra.Command, args []string) error {
	exp, err := buildExperiment(cmd, args)
	if err != nil {
		return err
	}
	cfg := exp.Config()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "equation\t%s\n", cfg.Equation)
	fmt.Fprintf(w, "state\t%v\n", exp.Y0)
	fmt.Fprintf(w, "params\t%v\n", exp.Params)
	for _, m := range stiffness.Metrics() {
		if !m.Pointwise() {
			continue
		}
		v, err := m.At(exp.Model, cfg.TStart, exp.Y0, exp.Params)
		if err != nil {
			return fmt.Errorf("%s: %w", m, err)
		}
		fmt.Fprintf(w, "%s\t%.6g\n", m, v)
		if m == stiffness.MetricIndicator {
			fmt.Fprintf(w, "timescale\t%.6g\n", stiffness.RefTimescale(v, cfg.TimescaleLength))
		}
	}
	return w.Flush()
}

func runCSP(cmd *cobra.Command, args []string) error {
	exp, err := buildExperiment(cmd, args)
	if err != nil {
		return err
	}
	proj, err := exp.Analyze()
	if err != nil {
		return err
	}

	b := proj.Basis
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODE\tEIGENVALUE\tTAU\tEXHAUSTED")
	for k := range b.Tau {
		fmt.Fprintf(w, "%d\t%.6g\t%.6g\t%v\n", k, b.Lambda[k], b.Tau[k], k < proj.M)
	}
	w.Flush()
	fmt.Printf("\nexhausted modes: %d\n", proj.M)
	fmt.Printf("tau_M+1: %.6g\n", proj.TauM1)
	fmt.Printf("stiffness: %.6g\n", proj.Stiffness)
	fmt.Printf("biorthogonality error: %.3g\n", b.Biorthogonality())

	if !integrate {
		return nil
	}
	run, err := exp.IntegrateCSP(cmd.Context())
	if len(run.Steps) == 0 {
		return err
	}
	st, serr := openStore()
	if serr != nil {
		return serr
	}
	cfg := exp.Config()
	runID, serr := st.Create(cfg.Equation)
	if serr != nil {
		return serr
	}
	if serr := st.SaveCSP(runID, run); serr != nil {
		return serr
	}
	meta := storage.MetadataFor("csp", exp)
	meta.Summary["steps"] = float64(len(run.Steps) - 1)
	if serr := st.Finish(runID, meta); serr != nil {
		return serr
	}
	last := run.Steps[len(run.Steps)-1]
	fmt.Printf("\nslow-manifold run id: %s\n", runID)
	fmt.Printf("final t=%.6g  M=%d  state=%v\n", last.Time, last.M, last.State)
	return err
}

func runCompare(cmd *cobra.Command, args []string) error {
	defer startMetrics()()
	exp, err := buildExperiment(cmd, args[:1])
	if err != nil {
		return err
	}
	cfg := exp.Config()
	solvers := args[1:]
	if len(solvers) == 0 {
		solvers = []string{cfg.StiffSolver, cfg.NonStiffSolver}
	}

	cmps, err := exp.CompareAll(cmd.Context(), solvers, cfg.Ensemble.Workers)
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	runID, err := st.Create(cfg.Equation)
	if err != nil {
		return err
	}

	meta := storage.MetadataFor("compare", exp)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOLVER\tSTEPS\tWORK\tTIME\tSTATUS")
	for i, cmp := range cmps {
		if cmp == nil {
			fmt.Fprintf(w, "%s\t-\t-\t-\tfailed\n", solvers[i])
			continue
		}
		if err := st.SaveComparison(runID, cmp); err != nil {
			return err
		}
		work, wall := 0, time.Duration(0)
		for _, r := range cmp.Rows {
			work += r.Work
			wall += r.Wall
		}
		status := "ok"
		if cmp.Err != nil {
			status = cmp.Err.Error()
		}
		meta.Summary[cmp.Solver+"_work"] = float64(work)
		meta.Summary[cmp.Solver+"_wall_seconds"] = wall.Seconds()
		fmt.Fprintf(w, "%s\t%d\t%d\t%v\t%s\n", cmp.Solver, len(cmp.Rows)-1, work, wall.Round(time.Microsecond), status)
	}
	w.Flush()
	if err := st.Finish(runID, meta); err != nil {
		return err
	}
	fmt.Printf("\nrun id: %s\n", runID)
	return nil
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	defer startMetrics()()
	exp, err := buildExperiment(cmd, nil)
	if err != nil {
		return err
	}
	cfg := exp.Config()
	paths := args
	if len(paths) == 0 {
		paths = cfg.Ensemble.Paths
	}
	if len(paths) == 0 {
		return fmt.Errorf("no PaSR files given")
	}
	data, err := pasr.LoadFiles(paths...)
	if err != nil {
		return err
	}

	pts := experiment.Points(data)
	slog.Info("ensemble", "points", len(pts), "workers", cfg.Ensemble.Workers, "steps", cfg.Ensemble.Steps)
	start := time.Now()
	rows, runErr := exp.Ensemble(cmd.Context(), data, pts)
	if rows == nil {
		return runErr
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	runID, err := st.Create(cfg.Equation)
	if err != nil {
		return err
	}
	if err := st.SaveEnsemble(runID, string(exp.Metric), rows); err != nil {
		return err
	}
	failed, stiff := 0, 0
	for _, r := range rows {
		switch {
		case r.Err != nil:
			failed++
		case r.Mode == controller.Stiff:
			stiff++
		}
	}
	meta := storage.MetadataFor("ensemble", exp)
	meta.Summary["points"] = float64(len(rows))
	meta.Summary["failed"] = float64(failed)
	meta.Summary["stiff_at_sample"] = float64(stiff)
	if err := st.Finish(runID, meta); err != nil {
		return err
	}

	fmt.Printf("%d points in %v (%d failed, %d stiff at step %d)\n",
		len(rows), time.Since(start).Round(time.Millisecond), failed, stiff, cfg.Ensemble.SampleStep)
	fmt.Printf("run id: %s\n", runID)
	return runErr
}

func runLive(cmd *cobra.Command, args []string) error {
	defer startMetrics()()
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	// the view owns the terminal
	exp, err := experiment.Build(cfg, experiment.WithMetrics(metrics), experiment.WithLogger(logging.Discard()))
	if err != nil {
		return err
	}

	m := viz.NewModel(cfg.Equation, cfg.TStart, cfg.TStop, exp.Model.Dim()).WithTheme(theme)
	return viz.Run(cmd.Context(), m, stride, func(ctx context.Context, obs controller.Observer) error {
		ctrl, err := exp.Controller(exp.Y0, exp.Params, controller.WithObserver(obs))
		if err != nil {
			return err
		}
		_, err = ctrl.Run(ctx)
		return err
	})
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tEQUATION\tTIME\tSPAN\tDT\tSOLVERS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t[%g, %g]\t%g\t%s/%s\n",
			run.ID,
			run.Kind,
			run.Equation,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.TStart, run.TStop,
			run.Dt,
			run.StiffSolver, run.NonStiffSolver,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	name := plotFile
	if name == "" {
		name = defaultTable(meta)
	}
	tab, err := st.LoadTable(runID, name)
	if err != nil {
		return err
	}

	columns := []string{plotColumn}
	if plotColumn == "" {
		columns = plottable(tab.Header)
	}

	fmt.Printf("run: %s (%s, %s)\n", meta.ID, meta.Kind, meta.Equation)
	fmt.Printf("table: %s  rows: %d\n\n", name, len(tab.Rows))
	for _, col := range columns {
		data, err := tab.Column(col)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			continue
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(col),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func defaultTable(meta *storage.RunMetadata) string {
	switch meta.Kind {
	case "csp":
		return storage.CSPFile
	case "ensemble":
		return storage.EnsembleFile
	}
	for _, f := range meta.Files {
		if f == storage.SolutionFile {
			return f
		}
	}
	if len(meta.Files) > 0 {
		return meta.Files[0]
	}
	return storage.SolutionFile
}

// plottable drops index-like columns and caps the number of charts.
func plottable(header []string) []string {
	const maxPlots = 6
	var out []string
	for _, h := range header {
		switch h {
		case "time", "step", "timestep", "particle", "mode", "error":
			continue
		}
		out = append(out, h)
		if len(out) == maxPlots {
			break
		}
	}
	return out
}

func exportRun(cmd *cobra.Command, args []string) error {
	return storage.New(dataDir).Export(os.Stdout, args[0])
}

func minMax(vs []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range vs {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	return lo, hi
}

