package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/qacoord/internal/report"
)

var (
	historyLimit     int
	historyFormat    string
	historyOlderThan time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded runs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(nil)
		if err != nil {
			return err
		}
		defer e.Close()
		store, err := openHistory(e)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.List(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no recorded runs")
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Run", "When", "Status", "Passed", "Failed", "Skipped", "Files", "Time"})
		for _, r := range runs {
			status := string(r.Status)
			if r.Incomplete {
				status += " (incomplete)"
			}
			if r.Success {
				status = color.GreenString(status)
			} else {
				status = color.RedString(status)
			}
			t.AppendRow(table.Row{
				r.ID[:min(8, len(r.ID))],
				r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				status,
				r.Summary.Passed,
				r.Summary.Failed,
				r.Summary.Skipped,
				r.Summary.FilesProcessed,
				r.TotalTime.Round(time.Millisecond),
			})
		}
		t.Render()
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the stored report of a run (ID prefixes accepted)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := report.ParseFormat(historyFormat)
		if err != nil {
			return err
		}
		e, err := setup(nil)
		if err != nil {
			return err
		}
		defer e.Close()
		store, err := openHistory(e)
		if err != nil {
			return err
		}
		defer store.Close()

		rep, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return report.Write(cmd.OutOrStdout(), rep, format)
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-tool failure rates across recorded runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(nil)
		if err != nil {
			return err
		}
		defer e.Close()
		store, err := openHistory(e)
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := store.ToolStats(cmd.Context())
		if err != nil {
			return err
		}
		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Tool", "Runs", "Failures", "Avg time"})
		for _, s := range stats {
			t.AppendRow(table.Row{s.Tool, s.Runs, s.Failures, s.AvgTime.Round(time.Millisecond)})
		}
		t.Render()
		return nil
	},
}

var historyPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete runs older than --older-than",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(nil)
		if err != nil {
			return err
		}
		defer e.Close()
		store, err := openHistory(e)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Purge(cmd.Context(), historyOlderThan)
		if err != nil {
			return err
		}
		printStatus("✓", fmt.Sprintf("purged %d runs", n), color.FgGreen)
		return nil
	},
}

func init() {
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum runs to list (0 = all)")
	historyShowCmd.Flags().StringVarP(&historyFormat, "format", "f", "console", "Report format (console, tree, json, yaml)")
	historyPurgeCmd.Flags().DurationVar(&historyOlderThan, "older-than", 30*24*time.Hour, "Age of runs to delete")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyStatsCmd)
	historyCmd.AddCommand(historyPurgeCmd)
}
