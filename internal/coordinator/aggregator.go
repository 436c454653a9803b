package coordinator

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/ShayCichocki/qacoord/pkg/models"
)

// RunInfo is the run-level context an aggregation needs besides results.
type RunInfo struct {
	RunID      string
	PlanID     string
	State      models.RunState
	Incomplete bool
	TotalTime  time.Duration
	Groups     int
	Finished   time.Time
}

// Aggregate folds tool results into one report. It is a pure function of
// its inputs; the order of results does not change the report.
func Aggregate(results []models.ToolResult, info RunInfo) *models.AggregatedReport {
	sorted := slices.Clone(results)
	slices.SortStableFunc(sorted, compareResults)

	report := &models.AggregatedReport{
		RunID:      info.RunID,
		PlanID:     info.PlanID,
		Success:    true,
		Status:     models.StatusPending,
		State:      info.State,
		Incomplete: info.Incomplete,
		Details: models.Details{
			Tools:      make(map[string]models.ToolDetail),
			Dimensions: make(map[models.Dimension]models.DimensionDetail),
			Execution:  models.ExecutionDetail{TotalTime: models.Millis(info.TotalTime), Groups: info.Groups},
		},
		Warnings:  []models.Entry{},
		Errors:    []models.Entry{},
		Timestamp: info.Finished,
	}

	s := &report.Summary
	for _, r := range sorted {
		s.Total++
		switch r.Status {
		case models.StatusPassed:
			s.Passed++
		case models.StatusWarning:
			s.Warnings++
		case models.StatusFailed, models.StatusError:
			s.Failed++
		default:
			s.Skipped++
		}
		s.FilesProcessed += r.Metadata.FilesProcessed

		report.Success = report.Success && r.Success
		report.Status = models.MaxStatus(report.Status, r.Status)

		for _, m := range r.Warnings {
			report.Warnings = append(report.Warnings, models.Entry{Tool: r.Tool, Action: m.Action, Message: m.Text})
		}
		for _, m := range r.Errors {
			report.Errors = append(report.Errors, models.Entry{Tool: r.Tool, Action: m.Action, Message: m.Text})
		}

		td, ok := report.Details.Tools[r.Tool]
		if !ok {
			td = models.ToolDetail{Dimension: r.Dimension, Success: true, Status: models.StatusPending}
		}
		td.Success = td.Success && r.Success
		td.Status = models.MaxStatus(td.Status, r.Status)
		td.ExecutionTime += r.ExecutionTime
		td.Errors += r.CountSeverity(models.SeverityError)
		td.Warnings += r.CountSeverity(models.SeverityWarning)
		td.Results = append(td.Results, r)
		report.Details.Tools[r.Tool] = td

		dd, ok := report.Details.Dimensions[r.Dimension]
		if !ok {
			dd = models.DimensionDetail{Success: true, Status: models.StatusPending}
		}
		dd.Success = dd.Success && r.Success
		dd.Status = models.MaxStatus(dd.Status, r.Status)
		if !slices.Contains(dd.Tools, r.Tool) {
			dd.Tools = append(dd.Tools, r.Tool)
		}
		report.Details.Dimensions[r.Dimension] = dd
	}

	if info.Incomplete {
		report.Success = false
	}

	slices.SortStableFunc(report.Warnings, compareEntries)
	slices.SortStableFunc(report.Errors, compareEntries)
	s.Message = summaryMessage(report)
	return report
}

func summaryMessage(r *models.AggregatedReport) string {
	s := r.Summary
	switch {
	case s.Failed > 0:
		return fmt.Sprintf("%d of %d validations failed (%d files processed)", s.Failed, s.Total, s.FilesProcessed)
	case r.Incomplete:
		return fmt.Sprintf("Validation incomplete (%d files processed)", s.FilesProcessed)
	case s.Warnings > 0 || len(r.Warnings) > 0:
		return fmt.Sprintf("Validation completed with warnings (%d files processed)", s.FilesProcessed)
	default:
		return fmt.Sprintf("All validations passed (%d files processed)", s.FilesProcessed)
	}
}

func compareResults(a, b models.ToolResult) int {
	return cmp.Or(
		cmp.Compare(a.Tool, b.Tool),
		cmp.Compare(a.Dimension, b.Dimension),
		cmp.Compare(a.Scope, b.Scope),
	)
}

func compareEntries(a, b models.Entry) int {
	return cmp.Or(
		cmp.Compare(a.Tool, b.Tool),
		cmp.Compare(a.Action, b.Action),
		cmp.Compare(a.Message, b.Message),
	)
}
