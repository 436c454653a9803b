// Package tui shows live progress of a coordinator run.
//
// The view lists every tool with a spinner while it runs and its status once
// finished. Pressing q or Ctrl+C aborts the run cooperatively; once the
// report is ready the same keys quit.
//
// Usage:
//
//	report, err := tui.Run(emitter.Events(), cancel, func() (*models.AggregatedReport, error) {
//	    return coord.Run(ctx, plan)
//	})
package tui
