package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/export"
	"github.com/san-kum/rigidsim/internal/metrics"
	"github.com/san-kum/rigidsim/internal/scenario"
	"github.com/san-kum/rigidsim/internal/sim"
	"github.com/san-kum/rigidsim/internal/storage"
	"github.com/san-kum/rigidsim/internal/viz"
	"github.com/san-kum/rigidsim/internal/world"
)

var (
	dataDir    string
	logLevel   string
	dt         float64
	duration   float64
	seed       int64
	workers    int
	configFile string
	preset     string
	showPlot   bool
	// Plot selection
	bodyIndex int
	column    string
	// Bench
	runs     int
	parallel int
	// SVG export
	plane  string
	width  int
	height int
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00cccc")).Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff"))
)

var logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "rigidsim"})

// main registers the commands and opens the scenario menu when no
// subcommand is given.
func main() {
	reg := scenario.NewRegistry()

	rootCmd := &cobra.Command{
		Use:   "rigidsim",
		Short: "3D rigid body simulation lab",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := log.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logger.SetLevel(lvl)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunInteractive(reg)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".rigidsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "run a scenario and store the result",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(cmd, reg, args)
		},
	}
	addSceneFlags(runCmd)
	runCmd.Flags().BoolVar(&showPlot, "plot", false, "plot the height of the first body")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a column of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&bodyIndex, "body", 0, "tracked body index")
	plotCmd.Flags().StringVar(&column, "column", "y", "column to plot (x, y, z, vx, vy, vz)")

	benchCmd := &cobra.Command{
		Use:   "bench [scenario]",
		Short: "time a scenario over several seeds",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return benchScenario(cmd, reg, args)
		},
	}
	addSceneFlags(benchCmd)
	benchCmd.Flags().IntVar(&runs, "runs", 4, "number of seeds")
	benchCmd.Flags().IntVar(&parallel, "parallel", 0, "concurrent runs (0 = one per run)")

	liveCmd := &cobra.Command{
		Use:   "live [scenario]",
		Short: "run a scenario with live visualization",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, args)
			if err != nil {
				return err
			}
			return viz.RunLive(func() (*scenario.Scene, error) { return cfg.Build(reg) }, cfg.Dt)
		},
	}
	addSceneFlags(liveCmd)

	scenariosCmd := &cobra.Command{
		Use:   "scenarios",
		Short: "list available scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPRESETS\tDESCRIPTION")
			for _, name := range reg.List() {
				desc, _ := reg.Describe(name)
				fmt.Fprintf(w, "%s\t%d\t%s\n", name, len(config.ListPresets(name)), desc)
			}
			return w.Flush()
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [scenario]",
		Short: "list available presets for a scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for scenario: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export body trajectories to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVar(&plane, "plane", "xy", "projection plane (xy, xz, zy)")
	exportSVGCmd.Flags().IntVar(&width, "width", 800, "image width")
	exportSVGCmd.Flags().IntVar(&height, "height", 600, "image height")

	deleteCmd := &cobra.Command{
		Use:   "delete [run_id]",
		Short: "delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).Delete(args[0])
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, benchCmd, liveCmd, scenariosCmd, presetsCmd,
		exportCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd, deleteCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSceneFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().IntVar(&workers, "workers", 1, "island solver workers")
}

// resolveConfig layers defaults, then a preset, then a config file, then
// explicitly set flags.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		cfg.Scenario = args[0]
	}

	if preset != "" {
		p, err := config.GetPreset(cfg.Scenario, preset)
		if err != nil {
			return nil, err
		}
		cfg = p
	}

	if configFile != "" {
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if len(args) > 0 {
			c.Scenario = args[0]
		}
		cfg = c
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("workers") {
		cfg.World.Workers = workers
	}
	return cfg, cfg.Validate()
}

func simConfig(cfg *config.Config) sim.Config {
	sc := sim.DefaultConfig()
	sc.Dt = cfg.Dt
	sc.Duration = cfg.Duration
	return sc
}

func runScenario(cmd *cobra.Command, reg *scenario.Registry, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	scene, err := cfg.Build(reg, world.WithLogger(logger))
	if err != nil {
		return err
	}
	s := sim.FromScene(scene, logger)
	for _, m := range metrics.Default() {
		s.AddMetric(m)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("running", "scenario", cfg.Scenario, "bodies", len(scene.World.Bodies()), "dt", cfg.Dt, "duration", cfg.Duration)
	start := time.Now()
	result, err := s.Run(ctx, simConfig(cfg))
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID, err := st.Save(storage.RunInfo{
		Scenario: cfg.Scenario,
		Preset:   preset,
		Seed:     cfg.Seed,
		Dt:       cfg.Dt,
		Duration: cfg.Duration,
		Params:   cfg.ScenarioParams(),
	}, result)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("%s complete", cfg.Scenario)))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	row := func(label, value string) {
		fmt.Fprintf(w, "  %s\t%s\n", labelStyle.Render(label), valueStyle.Render(value))
	}
	row("run id", runID)
	row("elapsed", elapsed.Round(time.Millisecond).String())
	row("steps", fmt.Sprint(result.StepsTaken))
	row("awake", fmt.Sprintf("%d/%d", result.Final.Awake, result.Final.Bodies))
	row("islands", fmt.Sprint(result.Final.Islands))
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		row(name, fmt.Sprintf("%.6f", result.Metrics[name]))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if showPlot && len(result.States) > 1 && result.States[0].Bodies() > 0 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(columnSeries(result.States, 0, 1),
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("body 0 height"),
		))
	}
	return nil
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
	fmt.Fprintln(w, "ID\tSCENARIO\tPRESET\tTIME\tDURATION\tDT\tBODIES\tSTEPS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%.4fs\t%d\t%d\n",
			run.ID,
			run.Scenario,
			run.Preset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Bodies,
			run.Steps,
		)
	}

	return w.Flush()
}

var columns = map[string]int{"x": 0, "y": 1, "z": 2, "vx": 3, "vy": 4, "vz": 5}

func columnSeries(states []sim.State, body, col int) []float64 {
	data := make([]float64, len(states))
	for i, s := range states {
		data[i] = s[body*sim.BodyStride+col]
	}
	return data
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	states, _, err := st.LoadStates(runID)
	if err != nil {
		return err
	}

	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}
	col, ok := columns[column]
	if !ok {
		return fmt.Errorf("unknown column %q", column)
	}
	if bodyIndex < 0 || bodyIndex >= states[0].Bodies() {
		return fmt.Errorf("body %d out of range (run tracks %d)", bodyIndex, states[0].Bodies())
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n", meta.Scenario)
	fmt.Printf("samples: %d\n\n", len(states))

	graph := asciigraph.Plot(columnSeries(states, bodyIndex, col),
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("body %d %s vs time", bodyIndex, column)),
	)
	fmt.Println(graph)
	return nil
}

// phaseTimer accumulates per-phase step durations.
type phaseTimer struct {
	total [world.PhaseSync + 1]time.Duration
	steps int
}

func (p *phaseTimer) OnStep(_ sim.State, stats world.StepStats) {
	for i := range p.total {
		p.total[i] += stats.Phases[i]
	}
	p.steps++
}

func benchScenario(cmd *cobra.Command, reg *scenario.Registry, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	if runs < 1 {
		return fmt.Errorf("runs must be at least 1, got %d", runs)
	}

	timers := make([]*phaseTimer, runs)
	factory := func(seed int64) (*sim.Simulator, error) {
		c := cfg.Clone()
		c.Seed = seed
		scene, err := c.Build(reg)
		if err != nil {
			return nil, err
		}
		s := sim.FromScene(scene, nil)
		t := &phaseTimer{}
		timers[seed-cfg.Seed] = t
		s.AddObserver(t)
		s.AddMetric(metrics.NewContacts())
		return s, nil
	}

	ens := sim.NewEnsemble(factory, runs, cfg.Seed)
	if parallel > 0 {
		ens.SetLimit(parallel)
	}

	fmt.Printf("benchmarking %s (%d runs, dt=%.4f, duration=%.1fs)\n\n", cfg.Scenario, runs, cfg.Dt, cfg.Duration)
	start := time.Now()
	results, err := ens.Run(context.Background(), simConfig(cfg))
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEED\tSTEPS\tCONTACTS\tBROAD\tNARROW\tISLANDS\tSOLVE\tSYNC")
	totalSteps := 0
	for i, r := range results {
		t := timers[i]
		fmt.Fprintf(w, "%d\t%d\t%.1f", cfg.Seed+int64(i), r.StepsTaken, r.Metrics["contact_points"])
		for p := world.PhaseBroad; p <= world.PhaseSync; p++ {
			fmt.Fprintf(w, "\t%v", (t.total[p] / time.Duration(max(t.steps, 1))).Round(time.Microsecond))
		}
		fmt.Fprintln(w)
		totalSteps += r.StepsTaken
		r.Release()
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d steps in %v (%.0f steps/sec)\n", totalSteps, elapsed.Round(time.Millisecond), float64(totalSteps)/elapsed.Seconds())
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

// loadResult rebuilds a result from a stored run.
func loadResult(runID string) (*storage.RunMetadata, *sim.Result, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	states, times, err := st.LoadStates(runID)
	if err != nil {
		return nil, nil, err
	}
	return meta, &sim.Result{
		States:     states,
		Times:      times,
		Metrics:    meta.Metrics,
		StepsTaken: meta.Steps,
	}, nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, result, err := loadResult(args[0])
	if err != nil {
		return err
	}
	if len(result.States) == 0 {
		return fmt.Errorf("no data to export")
	}
	return storage.ExportCSV(os.Stdout, result)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, result, err := loadResult(args[0])
	if err != nil {
		return err
	}
	info := storage.RunInfo{
		Scenario: meta.Scenario,
		Preset:   meta.Preset,
		Seed:     meta.Seed,
		Dt:       meta.Dt,
		Duration: meta.Duration,
		Params:   meta.Params,
	}
	return storage.ExportJSON(os.Stdout, info, result)
}

func exportSVG(cmd *cobra.Command, args []string) error {
	p, err := export.ParsePlane(plane)
	if err != nil {
		return err
	}
	_, result, err := loadResult(args[0])
	if err != nil {
		return err
	}
	svg := export.TrajectoriesToSVG(result.States, p, width, height)
	if svg == "" {
		return fmt.Errorf("not enough samples to draw a trajectory")
	}
	_, err = fmt.Fprintln(os.Stdout, svg)
	return err
}
