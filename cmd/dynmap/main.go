package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dynmap/internal/analysis"
	"github.com/san-kum/dynmap/internal/config"
	"github.com/san-kum/dynmap/internal/dynamo"
	"github.com/san-kum/dynmap/internal/experiment"
	"github.com/san-kum/dynmap/internal/logging"
	"github.com/san-kum/dynmap/internal/metrics"
	"github.com/san-kum/dynmap/internal/models"
	"github.com/san-kum/dynmap/internal/orbit"
	"github.com/san-kum/dynmap/internal/storage"
	"github.com/san-kum/dynmap/internal/viz"
)

var (
	dataDir     string
	configFile  string
	preset      string
	logLevel    string
	showMetrics bool

	flags runFlags

	// Output options
	svgFile string
	theme   string
	xAxis   int
	yAxis   int
	asJSON  bool

	// Analysis options
	transient  int
	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
	record     int
	component  int
	orbitIdx   int
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "dynmap",
		Short:        "discrete dynamical map lab",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".dynmap", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&showMetrics, "metrics", false, "print evaluation counters")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "generate and store an orbit",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runOrbit,
	}
	runCmd.Flags().StringVar(&svgFile, "svg", "", "also write a phase portrait svg")
	runCmd.Flags().IntVar(&xAxis, "x-axis", 0, "state index for x-axis")
	runCmd.Flags().IntVar(&yAxis, "y-axis", 1, "state index for y-axis")
	runCmd.Flags().StringVar(&theme, "theme", viz.Themes[0].Name, "svg color theme")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble [model]",
		Short: "generate orbits from randomized initial conditions",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEnsemble,
	}

	jacobianCmd := &cobra.Command{
		Use:   "jacobian [model]",
		Short: "order-n Jacobian at the initial condition",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showJacobian,
	}

	fixedCmd := &cobra.Command{
		Use:   "fixed [model]",
		Short: "find and classify a periodic point near the initial condition",
		Args:  cobra.MaximumNArgs(1),
		RunE:  findFixedPoint,
	}

	lyapunovCmd := &cobra.Command{
		Use:   "lyapunov [model]",
		Short: "Lyapunov spectrum along the orbit",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLyapunov,
	}
	lyapunovCmd.Flags().IntVar(&transient, "transient", 1000, "iterates discarded first")

	bifurcateCmd := &cobra.Command{
		Use:   "bifurcate [model]",
		Short: "bifurcation diagram over one parameter",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBifurcation,
	}
	bifurcateCmd.Flags().StringVar(&sweepParam, "sweep", "r", "parameter to sweep")
	bifurcateCmd.Flags().Float64Var(&sweepMin, "min", 2.5, "sweep start")
	bifurcateCmd.Flags().Float64Var(&sweepMax, "max", 4.0, "sweep end")
	bifurcateCmd.Flags().IntVar(&sweepSteps, "sweep-steps", 120, "parameter values")
	bifurcateCmd.Flags().IntVar(&transient, "transient", 1000, "iterates discarded per value")
	bifurcateCmd.Flags().IntVar(&record, "record", 200, "iterates recorded per value")
	bifurcateCmd.Flags().IntVar(&component, "index", 0, "state index to record")

	phaseCmd := &cobra.Command{
		Use:   "phase [model]",
		Short: "phase space plot of a fresh orbit",
		Args:  cobra.MaximumNArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().IntVar(&xAxis, "x-axis", 0, "state index for x-axis")
	phaseCmd.Flags().IntVar(&yAxis, "y-axis", 1, "state index for y-axis")

	viewCmd := &cobra.Command{
		Use:   "view [model]",
		Short: "interactive orbit player",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runView,
	}
	viewCmd.Flags().StringVar(&theme, "theme", viz.Themes[0].Name, "color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	for _, c := range []*cobra.Command{runCmd, ensembleCmd, jacobianCmd, fixedCmd, lyapunovCmd, bifurcateCmd, phaseCmd, viewCmd} {
		flags.register(c.Flags())
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().BoolVar(&asJSON, "json", false, "export metadata and orbits as JSON")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot coordinates of a stored orbit",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&orbitIdx, "orbit", 0, "orbit within the run")

	spectrumCmd := &cobra.Command{
		Use:   "spectrum [run_id]",
		Short: "power spectrum of one coordinate of a stored orbit",
		Args:  cobra.ExactArgs(1),
		RunE:  spectrumRun,
	}
	spectrumCmd.Flags().IntVar(&orbitIdx, "orbit", 0, "orbit within the run")
	spectrumCmd.Flags().IntVar(&component, "index", 0, "state index")

	deleteCmd := &cobra.Command{
		Use:   "delete [run_id]",
		Short: "delete a run and its data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(st *storage.Store) error {
				if err := st.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Printf("deleted %s\n", args[0])
				return nil
			})
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := config.ListModels()
			if len(args) == 1 {
				names = args
			}
			for _, model := range names {
				presets := config.ListPresets(model)
				if len(presets) == 0 {
					fmt.Printf("no presets for model: %s\n", model)
					continue
				}
				fmt.Printf("presets for %s:\n", model)
				for _, p := range presets {
					fmt.Printf("  %s\n", p)
				}
			}
			return nil
		},
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list available maps",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range models.NewRegistry().List() {
				fmt.Println(name)
			}
		},
	}

	rootCmd.AddCommand(runCmd, ensembleCmd, jacobianCmd, fixedCmd, lyapunovCmd, bifurcateCmd,
		phaseCmd, viewCmd, newScanCmd(), listCmd, showCmd, plotCmd, spectrumCmd, deleteCmd, presetsCmd, modelsCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// session is the experiment a model command works on, plus the collector
// printed by --metrics.
type session struct {
	exp       *experiment.Experiment
	collector *metrics.Collector
}

func newSession(cmd *cobra.Command, args []string) (*session, error) {
	model := ""
	if len(args) > 0 {
		model = args[0]
	}
	cfg, err := resolveConfig(model, preset, configFile)
	if err != nil {
		return nil, err
	}
	if err := flags.apply(cmd.Flags(), cfg); err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logging.Init(level)

	exp, err := experiment.New(cfg, models.NewRegistry())
	if err != nil {
		return nil, err
	}
	s := &session{exp: exp}
	if showMetrics {
		s.collector = metrics.NewCollector()
		exp.SetCollector(s.collector)
	}
	slog.Debug("experiment ready", "model", cfg.Model, "order", cfg.Order, "steps", cfg.Steps,
		"direction", cfg.Direction, "exact_jacobian", exp.System().HasExactJacobian())
	return s, nil
}

func (s *session) printMetrics() error {
	if s.collector == nil {
		return nil
	}
	summary, err := metrics.Summary(s.collector.Registry())
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(viz.Subtle.Render("evaluations"))
	fmt.Println(summary)
	return nil
}

func withStore(fn func(st *storage.Store) error) error {
	st, err := storage.Open(dataDir)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func observables(dim int) []metrics.Metric {
	ms := make([]metrics.Metric, 0, dim+2)
	for i := 0; i < dim; i++ {
		ms = append(ms, metrics.NewMean(i))
	}
	return append(ms, metrics.NewBounded(1e6), metrics.NewStepSize())
}

func runOrbit(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}
	o, err := s.exp.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("generate orbit: %w", err)
	}

	meta := s.exp.Metadata()
	meta.Metrics = metrics.Evaluate(o, observables(o.Dim())...)

	var runID string
	err = withStore(func(st *storage.Store) error {
		runID, err = st.Save(cmd.Context(), meta, []*orbit.Orbit{o})
		return err
	})
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	last, _ := o.Point(o.Len())
	fmt.Println(viz.Title.Render(meta.Model))
	fmt.Println(viz.Metric("run", runID))
	fmt.Println(viz.Metric("points", fmt.Sprintf("%d", o.Len()+1)))
	fmt.Println(viz.Metric("final", formatState(last)))
	for _, name := range sortedKeys(meta.Metrics) {
		fmt.Println(viz.Metric(name, fmt.Sprintf("%.6g", meta.Metrics[name])))
	}

	if svgFile != "" {
		svg, err := o.SVG(xAxis, yAxis, 600, 600, string(viz.GetTheme(theme).Orbit))
		if err != nil {
			return err
		}
		if err := os.WriteFile(svgFile, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Println(viz.Metric("svg", svgFile))
	}
	return s.printMetrics()
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}
	orbits, err := s.exp.RunEnsemble(cmd.Context())
	if err != nil {
		return fmt.Errorf("generate ensemble: %w", err)
	}
	if len(orbits) == 0 {
		return fmt.Errorf("ensemble is empty")
	}

	meta := s.exp.Metadata()
	var runID string
	err = withStore(func(st *storage.Store) error {
		runID, err = st.Save(cmd.Context(), meta, orbits)
		return err
	})
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "run %s: %d orbits\n\n", runID, len(orbits))
	fmt.Fprintln(w, "#\tSTART\tEND\tMAX STEP")
	for i, o := range orbits {
		first, _ := o.Point(0)
		last, _ := o.Point(o.Len())
		step := metrics.Evaluate(o, metrics.NewStepSize())["step_size"]
		fmt.Fprintf(w, "%d\t%s\t%s\t%.4g\n", i, formatState(first), formatState(last), step)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return s.printMetrics()
}

func showJacobian(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}
	x0, err := s.exp.InitialState()
	if err != nil {
		return err
	}
	order := s.exp.Config().Order

	var jac mat.Dense
	if err := s.exp.System().Jacobian(order, x0.Vec(), &jac); err != nil {
		return fmt.Errorf("jacobian: %w", err)
	}
	eigs, err := analysis.Eigenvalues(&jac)
	if err != nil {
		return err
	}

	method := "exact"
	if !s.exp.System().HasExactJacobian() {
		method = "finite difference"
	}
	fmt.Printf("J^%d at %s (%s):\n\n", order, formatState(x0), method)
	fmt.Printf("%v\n\n", mat.Formatted(&jac, mat.Prefix(""), mat.Squeeze()))
	fmt.Printf("det = %.6g\n", mat.Det(&jac))
	for i, ev := range eigs {
		fmt.Printf("λ%d = %.6g\n", i, ev)
	}
	return s.printMetrics()
}

func findFixedPoint(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}
	guess, err := s.exp.InitialState()
	if err != nil {
		return err
	}
	order := s.exp.Config().Order
	if order < 1 {
		order = 1
	}

	rep, err := analysis.AnalyzeFixedPoint(s.exp.System(), order, guess, s.exp.Newton())
	if err != nil {
		return fmt.Errorf("fixed point: %w", err)
	}

	fmt.Println(viz.Title.Render(fmt.Sprintf("period-%d point", rep.Order)))
	fmt.Println(viz.Metric("point", formatState(rep.Point)))
	fmt.Println(viz.Metric("newton iterations", fmt.Sprintf("%d", rep.Iterations)))
	fmt.Println(viz.Metric("stability", rep.Stability.String()))
	for i, ev := range rep.Eigenvalues {
		fmt.Println(viz.Metric(fmt.Sprintf("λ%d", i), fmt.Sprintf("%.6g", ev)))
	}
	return s.printMetrics()
}

func runLyapunov(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}
	x0, err := s.exp.InitialState()
	if err != nil {
		return err
	}
	cfg := s.exp.Config()
	order := max(cfg.Order, 1)

	exps, err := analysis.LyapunovSpectrum(s.exp.System(), order, x0, transient, cfg.Steps)
	if err != nil {
		return fmt.Errorf("lyapunov: %w", err)
	}

	fmt.Printf("lyapunov spectrum (%s, %d steps):\n", cfg.Model, cfg.Steps)
	sum := 0.0
	for i, l := range exps {
		fmt.Printf("  λ%d = %+.6f\n", i, l)
		sum += l
	}
	fmt.Printf("  sum = %+.6f\n", sum)
	if exps[0] > 0.01 {
		fmt.Println(viz.StatusRunning.Render("chaotic"))
	} else {
		fmt.Println(viz.StatusPaused.Render("regular"))
	}
	return s.printMetrics()
}

func runBifurcation(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && preset == "" && configFile == "" {
		args = []string{"logistic"}
	}
	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}
	x0, err := s.exp.InitialState()
	if err != nil {
		return err
	}

	sweep := analysis.BifurcationSweep{
		Param:      sweepParam,
		Min:        sweepMin,
		Max:        sweepMax,
		Steps:      sweepSteps,
		StateIndex: component,
		Transient:  transient,
		Record:     record,
	}
	data, err := analysis.BifurcationDiagram(s.exp.System(), sweep, x0)
	if err != nil {
		return fmt.Errorf("bifurcation: %w", err)
	}

	fmt.Printf("x%d vs %s in [%g, %g]\n\n", component, sweepParam, sweepMin, sweepMax)
	fmt.Print(analysis.BifurcationToASCII(data, 100, 30))
	return s.printMetrics()
}

func phasePlot(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}
	o, err := s.exp.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("generate orbit: %w", err)
	}
	p, err := analysis.NewPhasePortrait(o, xAxis, yAxis)
	if err != nil {
		return err
	}
	minX, maxX, minY, maxY := p.Bounds()
	fmt.Printf("x%d vs x%d, %d points\n", yAxis, xAxis, len(p.Points))
	fmt.Printf("x%d in [%.4g, %.4g], x%d in [%.4g, %.4g]\n\n", xAxis, minX, maxX, yAxis, minY, maxY)
	fmt.Print(analysis.PhasePortraitToASCII(p, 80, 30))
	return s.printMetrics()
}

func runView(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}
	x0, err := s.exp.InitialState()
	if err != nil {
		return err
	}
	cfg := s.exp.Config()
	p := viz.NewPlayer(cfg.Model, s.exp.System(), max(cfg.Order, 1), s.exp.Direction(), x0)
	p.SetTheme(theme)
	return viz.Run(p)
}

func listRuns(cmd *cobra.Command, args []string) error {
	return withStore(func(st *storage.Store) error {
		runs, err := st.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("no runs found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tMODEL\tTIME\tORDER\tSTEPS\tDIR\tORBITS")
		for _, run := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%d\n",
				run.ID,
				run.Model,
				run.Timestamp.Local().Format("2006-01-02 15:04:05"),
				run.Order,
				run.Steps,
				run.Direction,
				run.Orbits,
			)
		}
		return w.Flush()
	})
}

func showRun(cmd *cobra.Command, args []string) error {
	return withStore(func(st *storage.Store) error {
		meta, err := st.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if asJSON {
			orbits, err := st.LoadOrbits(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return storage.ExportJSON(os.Stdout, meta, orbits)
		}

		path, err := st.DataPath(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(viz.Title.Render(meta.ID))
		fmt.Println(viz.Metric("model", meta.Model))
		for _, k := range sortedKeys(meta.Params) {
			fmt.Println(viz.Metric("  "+k, fmt.Sprintf("%g", meta.Params[k])))
		}
		fmt.Println(viz.Metric("order", fmt.Sprintf("%d", meta.Order)))
		fmt.Println(viz.Metric("steps", fmt.Sprintf("%d", meta.Steps)))
		fmt.Println(viz.Metric("direction", meta.Direction))
		fmt.Println(viz.Metric("orbits", fmt.Sprintf("%d × dim %d", meta.Orbits, meta.Dim)))
		fmt.Println(viz.Metric("data", path))
		for _, k := range sortedKeys(meta.Metrics) {
			fmt.Println(viz.Metric(k, fmt.Sprintf("%.6g", meta.Metrics[k])))
		}
		return nil
	})
}

func loadOrbit(ctx context.Context, st *storage.Store, runID string) (*storage.RunMetadata, []dynamo.State, error) {
	meta, err := st.Load(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	orbits, err := st.LoadOrbits(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	if orbitIdx < 0 || orbitIdx >= len(orbits) {
		return nil, nil, fmt.Errorf("run %s has %d orbits, no orbit %d", runID, len(orbits), orbitIdx)
	}
	if len(orbits[orbitIdx]) == 0 {
		return nil, nil, fmt.Errorf("no data to plot")
	}
	return meta, orbits[orbitIdx], nil
}

func column(points []dynamo.State, idx int) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p[idx]
	}
	return out
}

func plotRun(cmd *cobra.Command, args []string) error {
	return withStore(func(st *storage.Store) error {
		meta, points, err := loadOrbit(cmd.Context(), st, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("run: %s\n", meta.ID)
		fmt.Printf("model: %s\n", meta.Model)
		fmt.Printf("points: %d\n\n", len(points))

		for idx := 0; idx < min(len(points[0]), 6); idx++ {
			graph := asciigraph.Plot(column(points, idx),
				asciigraph.Height(10),
				asciigraph.Width(80),
				asciigraph.Caption(fmt.Sprintf("x%d vs step", idx)),
			)
			fmt.Println(graph)
			fmt.Println()
		}
		return nil
	})
}

func spectrumRun(cmd *cobra.Command, args []string) error {
	return withStore(func(st *storage.Store) error {
		meta, points, err := loadOrbit(cmd.Context(), st, args[0])
		if err != nil {
			return err
		}
		if component < 0 || component >= len(points[0]) {
			return fmt.Errorf("%w: index %d, dimension %d", orbit.ErrOutOfRange, component, len(points[0]))
		}
		series := column(points, component)
		power := analysis.PowerSpectrum(series)
		if len(power) < 2 {
			return fmt.Errorf("orbit too short for a spectrum")
		}

		fmt.Printf("run: %s (%s)\n", meta.ID, meta.Model)
		if period := analysis.DominantPeriod(series); period > 0 {
			fmt.Printf("dominant period: %.3f iterations\n\n", period)
		} else {
			fmt.Printf("no dominant period\n\n")
		}
		graph := asciigraph.Plot(power[1:],
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("power of x%d vs frequency", component)),
		)
		fmt.Println(graph)
		return nil
	})
}
