package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/san-kum/stiffsim/internal/config"
	"github.com/san-kum/stiffsim/internal/logging"
	"github.com/san-kum/stiffsim/internal/telemetry"
)

var (
	dataDir     string
	logLevel    string
	noColor     bool
	metricsAddr string

	configFile string
	preset     string

	metric         string
	dt             float64
	tStart         float64
	tStop          float64
	absTol         float64
	relTol         float64
	noJacobian     bool
	stiffSolver    string
	nonStiffSolver string
	initialMode    string
	indThreshold   float64
	monThreshold   float64
	monitorIndex   int
	params         []float64
	initState      []float64
	findTimescale  bool
	timescaleLen   float64

	epsA      float64
	epsR      float64
	eps       float64
	integrate bool

	workers    int
	inertIndex int
	keepInert  bool
	sampleStep int
	steps      int

	plotFile   string
	plotColumn string
	stride     int
	theme      string
)

// metrics is nil unless --metrics-addr is set.
var metrics *telemetry.Metrics

func main() {
	rootCmd := &cobra.Command{
		Use:           "stiffsim",
		Short:         "stiffness detection and adaptive stiff/non-stiff integration",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(logging.Options{Level: logLevel, NoColor: noColor})
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return nil
		},
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", ".stiffsim", "data directory")
	pf.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.BoolVar(&noColor, "no-color", false, "disable colored log output")
	pf.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")

	runCmd := &cobra.Command{
		Use:   "run [equation]",
		Short: "integrate adaptively, switching between stiff and non-stiff solvers",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runAdaptive,
	}
	addProblemFlags(runCmd)
	addControllerFlags(runCmd)
	addMetricFlags(runCmd)

	metricCmd := &cobra.Command{
		Use:   "metric [equation]",
		Short: "evaluate the pointwise stiffness metrics on the initial state",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showMetrics,
	}
	addProblemFlags(metricCmd)
	addMetricFlags(metricCmd)

	cspCmd := &cobra.Command{
		Use:   "csp [equation]",
		Short: "computational singular perturbation analysis",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCSP,
	}
	addProblemFlags(cspCmd)
	cspCmd.Flags().Float64Var(&epsA, "eps-a", 1e-3, "absolute CSP tolerance")
	cspCmd.Flags().Float64Var(&epsR, "eps-r", 1e-3, "relative CSP tolerance")
	cspCmd.Flags().Float64Var(&eps, "eps", 0, "stiffness factor of csp_test")
	cspCmd.Flags().BoolVar(&integrate, "integrate", false, "integrate on the slow manifold")

	compareCmd := &cobra.Command{
		Use:   "compare [equation] [solver...]",
		Short: "compare stiffness metrics against integration cost per solver",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCompare,
	}
	addProblemFlags(compareCmd)
	addControllerFlags(compareCmd)
	compareCmd.Flags().IntVar(&workers, "workers", 0, "concurrent solvers (0 = GOMAXPROCS)")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble [pasr.csv...]",
		Short: "run the adaptive controller over every particle of PaSR snapshots",
		Args:  cobra.ArbitraryArgs,
		RunE:  runEnsemble,
	}
	addProblemFlags(ensembleCmd)
	addControllerFlags(ensembleCmd)
	addMetricFlags(ensembleCmd)
	ef := ensembleCmd.Flags()
	ef.IntVar(&workers, "workers", 0, "worker pool size (0 = GOMAXPROCS)")
	ef.IntVar(&inertIndex, "inert", -1, "species index of the inert component (-1 = none)")
	ef.BoolVar(&keepInert, "keep-inert", false, "keep the inert species as the last component")
	ef.IntVar(&sampleStep, "sample-step", config.DefaultSampleStep, "accepted step (1-based) at which metric and cost are recorded")
	ef.IntVar(&steps, "steps", 5, "steps of dt per particle")

	liveCmd := &cobra.Command{
		Use:   "live [equation]",
		Short: "adaptive run with a live terminal view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addProblemFlags(liveCmd)
	addControllerFlags(liveCmd)
	liveCmd.Flags().IntVar(&stride, "stride", 1, "send every n-th step to the view")
	liveCmd.Flags().StringVar(&theme, "theme", "night", "color theme")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&plotFile, "file", "", "table to plot from (default solution.csv)")
	plotCmd.Flags().StringVar(&plotColumn, "column", "", "single column to plot")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [equation]",
		Short: "list presets for an equation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for equation: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, metricCmd, cspCmd, compareCmd, ensembleCmd, liveCmd, listCmd, plotCmd, exportCmd, presetsCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error(err.Error())
		stop()
		os.Exit(1)
	}
}

func addProblemFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.Float64Var(&dt, "dt", config.DefaultDt, "output step")
	f.Float64Var(&tStart, "t-start", 0, "start time")
	f.Float64Var(&tStop, "t-stop", config.DefaultTStop, "stop time")
	f.Float64SliceVar(&params, "params", nil, "right-hand-side parameters")
	f.Float64SliceVar(&initState, "init", nil, "initial state")
}

func addControllerFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64Var(&absTol, "atol", config.DefaultAbsTol, "absolute solver tolerance")
	f.Float64Var(&relTol, "rtol", config.DefaultRelTol, "relative solver tolerance")
	f.BoolVar(&noJacobian, "no-jacobian", false, "use finite-difference Jacobians in the stiff solver")
	f.StringVar(&stiffSolver, "stiff", "bdf", "stiff solver family")
	f.StringVar(&nonStiffSolver, "nonstiff", "dopri5", "non-stiff solver family")
	f.StringVar(&initialMode, "mode", "stiff", "initial mode (stiff, nonstiff)")
	f.Float64Var(&indThreshold, "indicator-threshold", config.DefaultIndicatorThreshold, "switch to non-stiff above this indicator")
	f.Float64Var(&monThreshold, "monitor-threshold", config.DefaultMonitorThreshold, "stay stiff at or above this monitored value")
	f.IntVar(&monitorIndex, "monitor-index", 0, "state component watched by the monitor")
}

func addMetricFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&metric, "metric", "indicator", "stiffness metric (index, indicator, ratio, cema)")
	f.BoolVar(&findTimescale, "timescale", false, "derive reference timescales from the indicator")
	f.Float64Var(&timescaleLen, "timescale-length", config.DefaultTimescaleLength, "cap on the reference timescale")
}

// resolveConfig layers defaults, preset, config file and explicitly set
// flags, in that order.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	equation := ""
	if len(args) > 0 {
		equation = args[0]
	}

	if preset != "" {
		if equation == "" {
			return nil, fmt.Errorf("--preset needs an equation")
		}
		cfg = config.GetPreset(equation, preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(equation))
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if equation != "" {
		cfg.Equation = equation
	}

	f := cmd.Flags()
	set := func(name string, apply func()) {
		if f.Lookup(name) != nil && f.Changed(name) {
			apply()
		}
	}
	set("dt", func() { cfg.Dt = dt })
	set("t-start", func() { cfg.TStart = tStart })
	set("t-stop", func() { cfg.TStop = tStop })
	set("params", func() { cfg.Params = params })
	set("init", func() { cfg.InitState = initState })
	set("atol", func() { cfg.AbsTol = absTol })
	set("rtol", func() { cfg.RelTol = relTol })
	set("no-jacobian", func() { cfg.UseJacobian = !noJacobian })
	set("stiff", func() { cfg.StiffSolver = stiffSolver })
	set("nonstiff", func() { cfg.NonStiffSolver = nonStiffSolver })
	set("mode", func() { cfg.InitialMode = initialMode })
	set("indicator-threshold", func() { cfg.IndicatorThreshold = indThreshold })
	set("monitor-threshold", func() { cfg.MonitorThreshold = monThreshold })
	set("monitor-index", func() { cfg.MonitorIndex = monitorIndex })
	set("metric", func() { cfg.Metric = metric })
	set("timescale", func() { cfg.FindTimescale = findTimescale })
	set("timescale-length", func() { cfg.TimescaleLength = timescaleLen })
	set("eps-a", func() { cfg.CSP.EpsA = epsA })
	set("eps-r", func() { cfg.CSP.EpsR = epsR })
	set("eps", func() { cfg.CSP.Eps = eps })
	set("workers", func() { cfg.Ensemble.Workers = workers })
	set("inert", func() { cfg.Ensemble.InertIndex = inertIndex })
	set("keep-inert", func() { cfg.Ensemble.KeepInert = keepInert })
	set("sample-step", func() { cfg.Ensemble.SampleStep = sampleStep })
	set("steps", func() { cfg.Ensemble.Steps = steps })

	return cfg, cfg.Validate()
}

// startMetrics serves the registry on --metrics-addr. The returned stop
// function is safe to call when no server was started.
func startMetrics() func() {
	if metricsAddr == "" {
		return func() {}
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics = telemetry.New(reg)

	srv := &http.Server{
		Addr:              metricsAddr,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "addr", metricsAddr, "err", err)
		}
	}()
	slog.Info("serving metrics", "addr", metricsAddr)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
