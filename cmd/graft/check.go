package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"graft/internal/compiler"
	"graft/internal/config"
	"graft/internal/diag"
	"graft/internal/diagfmt"
	"graft/internal/errs"
	"graft/internal/logging"
	"graft/internal/schema"
	"graft/internal/trace"
	"graft/internal/ui"
)

var errCheckFailed = errors.New("check failed")

var checkCmd = &cobra.Command{
	Use:          "check",
	Short:        "Build every project once and report diagnostics",
	SilenceUsage: true,
	RunE:         runCheck,
}

func init() {
	checkCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	checkCmd.Flags().String("ui", "auto", "show a progress view (auto|on|off)")
	checkCmd.Flags().Int("max-diagnostics", 100, "maximum number of diagnostics to show (0 for all)")
	checkCmd.Flags().Bool("full-path", false, "print absolute paths")
	checkCmd.Flags().Bool("with-notes", true, "print diagnostic notes")
	checkCmd.Flags().Bool("summary", true, "print the per-project summary")
}

type checkOptions struct {
	format    string
	ui        tristate
	max       int
	fullPath  bool
	withNotes bool
	summary   bool
	color     bool
}

func readCheckOptions(cmd *cobra.Command) (checkOptions, error) {
	var opts checkOptions
	flags := cmd.Flags()
	format, err := flags.GetString("format")
	if err != nil {
		return opts, err
	}
	opts.format = strings.ToLower(format)
	if opts.format != "pretty" && opts.format != "json" {
		return opts, fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
	uiValue, err := flags.GetString("ui")
	if err != nil {
		return opts, err
	}
	if opts.ui, err = parseTristate("ui", uiValue); err != nil {
		return opts, err
	}
	if opts.max, err = flags.GetInt("max-diagnostics"); err != nil {
		return opts, err
	}
	if opts.fullPath, err = flags.GetBool("full-path"); err != nil {
		return opts, err
	}
	if opts.withNotes, err = flags.GetBool("with-notes"); err != nil {
		return opts, err
	}
	if opts.summary, err = flags.GetBool("summary"); err != nil {
		return opts, err
	}
	if opts.color, err = colorEnabled(cmd, stdoutFile(cmd)); err != nil {
		return opts, err
	}
	return opts, nil
}

func runCheck(cmd *cobra.Command, _ []string) error {
	opts, err := readCheckOptions(cmd)
	if err != nil {
		return err
	}
	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()

	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Close() }()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return checkWorkspace(cmd.Context(), cfg, cmd.OutOrStdout(), log, opts)
}

// projectResult is the outcome of checking one project.
type projectResult struct {
	project  *config.ProjectConfig
	programs *compiler.Programs
	diags    []diag.Diagnostic
	err      error
}

func checkWorkspace(ctx context.Context, cfg *config.Config, out io.Writer, log *logging.Logger, opts checkOptions) error {
	start := time.Now()
	perf := trace.NewPerfLogger(trace.FromContext(ctx), log.Logger)
	ev := perf.CreateEvent("check")
	state, err := trace.Time(ev, "load_state", func() (*compiler.State, error) {
		return compiler.LoadState(cfg, log.Logger)
	})
	if err != nil {
		return err
	}
	schemas := compiler.BuildSchemas(cfg, state, ev)
	targets := checkTargets(cfg)
	pipeline := compiler.NewPipeline(compiler.WithLogger(log.Logger))

	var results []projectResult
	if opts.format == "pretty" && opts.ui.enabled(os.Stdout) {
		results, err = checkWithUI(ctx, targets, func(sink func(ui.Event)) []projectResult {
			return checkProjects(ctx, targets, state, schemas, pipeline, sink)
		})
		if err != nil {
			return err
		}
	} else {
		results = checkProjects(ctx, targets, state, schemas, pipeline, func(ui.Event) {})
	}
	ev.Number("projects_checked", len(results))
	perf.CompleteEvent(ev)
	if err := perf.Flush(); err != nil {
		log.Warn("perf flush failed", "error", err)
	}

	failed := persistResults(cfg, results, log)
	var diags []diag.Diagnostic
	for _, r := range results {
		diags = append(diags, r.diags...)
	}
	pathMode := diagfmt.PathModeAuto
	if opts.fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}

	switch opts.format {
	case "json":
		err = diagfmt.JSON(out, diags, state.File, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         pathMode,
			BaseDir:          cfg.RootDir,
			Max:              opts.max,
			IncludeNotes:     opts.withNotes,
		})
		if err != nil {
			return err
		}
	default:
		diagfmt.Pretty(out, diags, state.File, diagfmt.PrettyOpts{
			Color:     opts.color,
			PathMode:  pathMode,
			BaseDir:   cfg.RootDir,
			ShowNotes: opts.withNotes,
			Max:       opts.max,
		})
		if opts.summary {
			fmt.Fprintln(out, ui.Summary(summarize(results), time.Since(start), opts.color))
		}
	}
	if failed {
		return errCheckFailed
	}
	return nil
}

// checkTargets returns the only project in single-project mode and every
// project otherwise, in name order.
func checkTargets(cfg *config.Config) []*config.ProjectConfig {
	if only := cfg.OnlyProject; only != nil {
		if pc, ok := cfg.Projects[*only]; ok {
			return []*config.ProjectConfig{pc}
		}
	}
	return cfg.SortedProjects()
}

func checkProjects(ctx context.Context, targets []*config.ProjectConfig, state *compiler.State, schemas map[config.ProjectName]*schema.Schema, pipeline *compiler.Pipeline, sink func(ui.Event)) []projectResult {
	for _, pc := range targets {
		sink(ui.Event{Project: pc.Name.String(), Status: ui.StatusQueued})
	}
	sink(ui.Event{Status: ui.StatusChecking})
	results := make([]projectResult, 0, len(targets))
	for _, pc := range targets {
		sink(ui.Event{Project: pc.Name.String(), Status: ui.StatusChecking})
		programs, err := pipeline.CheckProject(ctx, pc, state, nil, schemas[pc.Name])
		r := projectResult{project: pc, programs: programs, err: err}
		var failure *errs.BuildProjectError
		if errors.As(err, &failure) {
			r.diags = failure.Diagnostics
		}
		status := ui.StatusDone
		if err != nil {
			status = ui.StatusFailed
		}
		sink(ui.Event{Project: pc.Name.String(), Status: status, Diagnostics: len(r.diags)})
		results = append(results, r)
	}
	return results
}

// persistResults writes artifacts of the successful projects when an
// artifacts directory is configured. It reports whether any project failed.
func persistResults(cfg *config.Config, results []projectResult, log *logging.Logger) bool {
	var store *compiler.ArtifactStore
	if cfg.ArtifactsDir != "" {
		store = compiler.NewArtifactStore(cfg.ArtifactsDir)
	}
	failed := false
	for _, r := range results {
		if r.err != nil {
			failed = true
			if len(r.diags) == 0 {
				log.Error("check: project failed", "project", r.project.Name.String(), "error", r.err)
			}
			continue
		}
		if err := store.Persist(r.programs); err != nil {
			log.Error("check: failed to write artifacts", "project", r.project.Name.String(), "error", err)
			failed = true
		}
	}
	return failed
}

func summarize(results []projectResult) []ui.ProjectSummary {
	out := make([]ui.ProjectSummary, 0, len(results))
	for _, r := range results {
		s := ui.ProjectSummary{Name: r.project.Name.String(), OK: r.err == nil, Diagnostics: len(r.diags)}
		if r.programs != nil {
			s.Operations = r.programs.Operations.OperationCount()
			s.Fragments = r.programs.Operations.FragmentCount()
		}
		out = append(out, s)
	}
	return out
}

func checkWithUI(ctx context.Context, targets []*config.ProjectConfig, run func(func(ui.Event)) []projectResult) ([]projectResult, error) {
	names := make([]string, len(targets))
	for i, pc := range targets {
		names[i] = pc.Name.String()
	}
	events := make(chan ui.Event, 256)
	done := make(chan []projectResult, 1)
	go func() {
		results := run(func(ev ui.Event) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		})
		close(events)
		done <- results
	}()

	program := tea.NewProgram(ui.NewProgressModel("checking projects", names, events), tea.WithOutput(os.Stdout), tea.WithContext(ctx))
	_, uiErr := program.Run()
	go func() {
		for range events {
		}
	}()
	results := <-done
	if uiErr != nil && !errors.Is(uiErr, tea.ErrProgramKilled) {
		return results, uiErr
	}
	return results, nil
}
