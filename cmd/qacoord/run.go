package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/qacoord/internal/coordinator"
	"github.com/ShayCichocki/qacoord/internal/history"
	"github.com/ShayCichocki/qacoord/internal/report"
	"github.com/ShayCichocki/qacoord/internal/signals"
	"github.com/ShayCichocki/qacoord/internal/tui"
	"github.com/ShayCichocki/qacoord/pkg/models"
)

var (
	runPlanFlags      planFlags
	runFormat         string
	runTUI            bool
	runStopOnCritical bool
	runTimeout        time.Duration
	runMaxParallel    int
	runNoHistory      bool
)

var runCmd = &cobra.Command{
	Use:   "run [plan.yaml]",
	Short: "Run QA tools and report a merged verdict",
	Long: `Run the tools of a plan file, or the tools the configured schema maps
to the selected dimensions and scopes.

Examples:
  qacoord run                              # every dimension and scope
  qacoord run -d lint -d format -s backend # backend linters and formatters
  qacoord run --mode full plan.yaml        # explicit plan, full mode
  qacoord run --tui --stop-on-critical     # live view, stop after a critical group

Exit status is 0 when every validation passed, 1 when any failed and 2 when
the plan is invalid. Touching .qacoord/signals/abort (or running
'qacoord abort') cancels a run in progress.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	runPlanFlags.register(runCmd)
	runCmd.Flags().StringVarP(&runFormat, "format", "f", "console", "Report format (console, tree, json, yaml)")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Show live progress")
	runCmd.Flags().BoolVar(&runStopOnCritical, "stop-on-critical", false, "Skip remaining groups after a critical failure")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Default per-tool timeout (e.g. 2m)")
	runCmd.Flags().IntVar(&runMaxParallel, "max-parallel", 0, "Limit concurrent tools within a group (0 = unlimited)")
	runCmd.Flags().BoolVar(&runNoHistory, "no-history", false, "Do not record the run in history")
}

func runRun(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(runFormat)
	if err != nil {
		return withExit(exitPlanError, err)
	}

	var logOut io.Writer
	if runTUI {
		// Console log lines would tear the live view; the file sink still applies.
		logOut = io.Discard
	}
	e, err := setup(logOut)
	if err != nil {
		return err
	}
	defer e.Close()

	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	plan, err := runPlanFlags.build(cmd.Context(), e, path, nil)
	if err != nil {
		return withExit(exitPlanError, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := signals.NewWatcher(e.root)
	if err != nil {
		e.log.Warn("abort signals unavailable", "error", err)
	} else {
		defer watcher.Close()
		var release context.CancelFunc
		ctx, release = watcher.Bind(ctx)
		defer release()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := []coordinator.Option{coordinator.WithLogger(e.log)}
	if cmd.Flags().Changed("stop-on-critical") {
		opts = append(opts, coordinator.WithStopOnCritical(runStopOnCritical))
	}
	if runTimeout > 0 {
		opts = append(opts, coordinator.WithDefaultTimeout(runTimeout))
	}
	if cmd.Flags().Changed("max-parallel") {
		opts = append(opts, coordinator.WithMaxParallel(runMaxParallel))
	}

	if e.cfg.History.Enabled && !runNoHistory {
		store, err := openHistory(e)
		if err != nil {
			e.log.Warn("run history disabled", "error", err)
		} else {
			defer store.Close()
			opts = append(opts, coordinator.WithRecorder(store))
		}
	}

	var rep *models.AggregatedReport
	if runTUI {
		emitter := coordinator.NewEventEmitter(256, e.log)
		coord := coordinator.New(e.cfg, append(opts, coordinator.WithEvents(emitter))...)
		rep, err = tui.Run(emitter.Events(), cancel, func() (*models.AggregatedReport, error) {
			defer emitter.Close()
			return coord.Run(ctx, plan)
		})
	} else {
		rep, err = coordinator.New(e.cfg, opts...).Run(ctx, plan)
	}
	if err != nil {
		if errors.Is(err, coordinator.ErrInvalidPlan) || errors.Is(err, coordinator.ErrUnknownTool) {
			return withExit(exitPlanError, err)
		}
		return withExit(exitFailure, err)
	}

	if watcher != nil && watcher.ShouldAbort() {
		printStatus("!", "run aborted by signal: "+watcher.Reason(), color.FgYellow)
	}
	if err := report.Write(cmd.OutOrStdout(), rep, format); err != nil {
		return err
	}
	if !rep.Success {
		return withExit(exitFailure, nil)
	}
	return nil
}

func openHistory(e *env) (*history.Store, error) {
	path := e.cfg.History.Path
	if path == "" {
		path = history.PathForRepo(e.root)
	}
	return history.Open(path)
}
