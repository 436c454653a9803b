package report

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ShayCichocki/qacoord/pkg/models"
)

// maxListed caps the warnings and errors printed per section.
const maxListed = 20

var statusColors = map[models.Status]color.Attribute{
	models.StatusPassed:  color.FgGreen,
	models.StatusWarning: color.FgYellow,
	models.StatusError:   color.FgRed,
	models.StatusFailed:  color.FgRed,
	models.StatusPending: color.FgHiBlack,
}

var statusSymbols = map[models.Status]string{
	models.StatusPassed:  "✓",
	models.StatusWarning: "!",
	models.StatusError:   "✗",
	models.StatusFailed:  "✗",
	models.StatusPending: "-",
}

func colorStatus(s models.Status) string {
	return color.New(statusColors[s]).Sprint(string(s))
}

func statusLine(s models.Status, message string) string {
	c := color.New(statusColors[s], color.Bold)
	return fmt.Sprintf("%s %s", c.Sprint(statusSymbols[s]), message)
}

// WriteConsole writes a colored summary with a per-tool table.
func WriteConsole(w io.Writer, r *models.AggregatedReport) error {
	fmt.Fprintf(w, "\n%s\n", statusLine(r.Status, r.Summary.Message))
	if r.Incomplete {
		fmt.Fprintf(w, "%s\n", color.YellowString("run incomplete (state: %s)", r.State))
	}
	fmt.Fprintln(w)

	if len(r.Details.Tools) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Tool", "Dimension", "Status", "Errors", "Warnings", "Files", "Time"})
		for _, name := range sortedTools(r) {
			d := r.Details.Tools[name]
			files := 0
			for _, res := range d.Results {
				files += res.Metadata.FilesProcessed
			}
			t.AppendRow(table.Row{name, d.Dimension, colorStatus(d.Status), d.Errors, d.Warnings, files, formatDuration(d.ExecutionTime.Duration())})
		}
		t.AppendFooter(table.Row{"", "", "", "", "", r.Summary.FilesProcessed, formatDuration(r.Details.Execution.TotalTime.Duration())})
		t.Render()
		fmt.Fprintln(w)
	}

	writeEntries(w, "Errors", r.Errors, color.New(color.FgRed))
	writeEntries(w, "Warnings", r.Warnings, color.New(color.FgYellow))
	writeMetrics(w, r)

	s := r.Summary
	fmt.Fprintf(w, "%d total, %s, %s, %s, %s\n",
		s.Total,
		color.GreenString("%d passed", s.Passed),
		color.RedString("%d failed", s.Failed),
		color.YellowString("%d warnings", s.Warnings),
		color.HiBlackString("%d skipped", s.Skipped))
	return nil
}

func writeEntries(w io.Writer, title string, entries []models.Entry, c *color.Color) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(w, "%s (%d):\n", c.Sprint(title), len(entries))
	for i, e := range entries {
		if i == maxListed {
			fmt.Fprintf(w, "  ... and %d more\n", len(entries)-maxListed)
			break
		}
		origin := e.Tool
		if e.Action != "" {
			origin += "/" + e.Action
		}
		fmt.Fprintf(w, "  [%s] %s\n", origin, e.Message)
	}
	fmt.Fprintln(w)
}

// writeMetrics lists violations carrying a design-metric classification
// outside the green band.
func writeMetrics(w io.Writer, r *models.AggregatedReport) {
	var lines []string
	for _, name := range sortedTools(r) {
		for _, res := range r.Details.Tools[name].Results {
			for _, v := range res.Violations {
				m := v.DesignMetrics
				if m == nil || m.Classification == models.ClassificationGreen {
					continue
				}
				lines = append(lines, fmt.Sprintf("  %s %s:%d %s=%d (%s)", m.Emoji, v.File, v.Line, m.Metric, m.Value, m.Threshold))
			}
		}
	}
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", color.New(color.Bold).Sprint("Design metrics"))
	if len(lines) > maxListed {
		lines = append(lines[:maxListed], fmt.Sprintf("  ... and %d more", len(lines)-maxListed))
	}
	fmt.Fprintln(w, strings.Join(lines, "\n"))
	fmt.Fprintln(w)
}

func sortedTools(r *models.AggregatedReport) []string {
	names := make([]string, 0, len(r.Details.Tools))
	for name := range r.Details.Tools {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return d.Round(100 * time.Millisecond).String()
	}
}
