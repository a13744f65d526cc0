package main

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/dynmap/internal/experiment"
	"github.com/san-kum/dynmap/internal/metrics"
	"github.com/san-kum/dynmap/internal/models"
	"github.com/san-kum/dynmap/internal/optim"
	"github.com/san-kum/dynmap/internal/viz"
)

var (
	gridSpecs []string
	objective string
	maximize  bool
	top       int
)

func newScanCmd() *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan [model]",
		Short: "grid search over map parameters",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScan,
	}
	scanCmd.Flags().StringArrayVar(&gridSpecs, "grid", nil, "parameter range name=lo:hi:n (repeatable)")
	scanCmd.Flags().StringVar(&objective, "objective", "lyapunov", "lyapunov, mean, step_size or bounded")
	scanCmd.Flags().BoolVar(&maximize, "maximize", false, "keep the largest value")
	scanCmd.Flags().IntVar(&transient, "transient", 1000, "iterates discarded before the lyapunov estimate")
	scanCmd.Flags().IntVar(&component, "index", 0, "state index for the mean objective")
	scanCmd.Flags().IntVar(&top, "top", 10, "rows to print")
	flags.register(scanCmd.Flags())
	return scanCmd
}

// parseGrid reads "name=lo:hi:n" into a parameter name and its values.
func parseGrid(spec string) (string, []float64, error) {
	name, rng, ok := strings.Cut(spec, "=")
	if !ok || name == "" {
		return "", nil, fmt.Errorf("grid %q: want name=lo:hi:n", spec)
	}
	parts := strings.Split(rng, ":")
	if len(parts) != 3 {
		return "", nil, fmt.Errorf("grid %q: want name=lo:hi:n", spec)
	}
	lo, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return "", nil, fmt.Errorf("grid %q: %w", spec, err)
	}
	hi, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return "", nil, fmt.Errorf("grid %q: %w", spec, err)
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil || n < 1 {
		return "", nil, fmt.Errorf("grid %q: point count must be a positive integer", spec)
	}
	return name, optim.Linspace(lo, hi, n), nil
}

func scanObjective(name string) (optim.Objective, error) {
	switch name {
	case "lyapunov":
		return optim.LargestLyapunov(transient), nil
	case "mean":
		return optim.OrbitMetric(func() metrics.Metric { return metrics.NewMean(component) }), nil
	case "step_size":
		return optim.OrbitMetric(func() metrics.Metric { return metrics.NewStepSize() }), nil
	case "bounded":
		return optim.OrbitMetric(func() metrics.Metric { return metrics.NewBounded(1e6) }), nil
	}
	return nil, fmt.Errorf("unknown objective: %s", name)
}

func runScan(cmd *cobra.Command, args []string) error {
	if len(gridSpecs) == 0 {
		return fmt.Errorf("at least one --grid is required")
	}
	names := make([]string, len(gridSpecs))
	ranges := make([][]float64, len(gridSpecs))
	for i, spec := range gridSpecs {
		var err error
		if names[i], ranges[i], err = parseGrid(spec); err != nil {
			return err
		}
	}
	obj, err := scanObjective(objective)
	if err != nil {
		return err
	}

	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}
	base := s.exp.Config()

	g, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}
	g.Maximize(maximize)

	build := func(params map[string]float64) (*experiment.Experiment, error) {
		cfg := base.Clone()
		if cfg.Params == nil {
			cfg.Params = make(map[string]float64, len(params))
		}
		for k, v := range params {
			cfg.Params[k] = v
		}
		exp, err := experiment.New(cfg, models.NewRegistry())
		if err != nil {
			return nil, err
		}
		if s.collector != nil {
			exp.SetCollector(s.collector)
		}
		return exp, nil
	}

	res, err := g.Search(cmd.Context(), build, obj)
	if err != nil {
		return err
	}

	fmt.Printf("%s over %d points (%d failed)\n\n", objective, len(res.Samples), res.Failed)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(names, "\t"))+"\tVALUE")
	for i, sample := range res.SortedSamples(maximize) {
		if i == top {
			break
		}
		row := make([]string, len(names))
		for j, n := range names {
			row[j] = fmt.Sprintf("%.6g", sample.Params[n])
		}
		value := fmt.Sprintf("%.6g", sample.Value)
		if math.IsNaN(sample.Value) {
			value = "failed"
		}
		fmt.Fprintf(w, "%s\t%s\n", strings.Join(row, "\t"), value)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	best := make([]string, 0, len(res.Best.Params))
	for _, k := range sortedKeys(res.Best.Params) {
		best = append(best, fmt.Sprintf("%s=%g", k, res.Best.Params[k]))
	}
	fmt.Println(viz.Metric("best", fmt.Sprintf("%s → %.6g", strings.Join(best, " "), res.Best.Value)))
	return s.printMetrics()
}
