package coordinator

import (
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ShayCichocki/qacoord/pkg/models"
)

func withStatus(name string, status models.Status) models.ToolResult {
	r := req(name, models.DimensionLint)
	switch status {
	case models.StatusPassed:
		return *result(r, true)
	case models.StatusWarning:
		return *result(r, true, violation(models.SeverityWarning, name+" warns"))
	case models.StatusFailed:
		return *result(r, true, violation(models.SeverityError, name+" fails"))
	case models.StatusError:
		return *result(r, false)
	default:
		return *UnavailableResult(r)
	}
}

func TestAggregateStatusHierarchy(t *testing.T) {
	tests := []struct {
		name        string
		statuses    []models.Status
		wantStatus  models.Status
		wantSuccess bool
	}{
		{"passed warning passed", []models.Status{models.StatusPassed, models.StatusWarning, models.StatusPassed}, models.StatusWarning, true},
		{"warning failed", []models.Status{models.StatusWarning, models.StatusFailed}, models.StatusFailed, false},
		{"error beats warning", []models.Status{models.StatusWarning, models.StatusError}, models.StatusError, false},
		{"failed beats error", []models.Status{models.StatusError, models.StatusFailed}, models.StatusFailed, false},
		{"pending only", []models.Status{models.StatusPending}, models.StatusPending, true},
		{"empty", nil, models.StatusPending, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var results []models.ToolResult
			for i, s := range tt.statuses {
				results = append(results, withStatus(string(rune('a'+i)), s))
			}
			report := Aggregate(results, RunInfo{State: models.RunStateCompleted})
			if report.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", report.Status, tt.wantStatus)
			}
			if report.Success != tt.wantSuccess {
				t.Errorf("Success = %v, want %v", report.Success, tt.wantSuccess)
			}
		})
	}
}

func TestAggregateSingleErrorFailsAll(t *testing.T) {
	results := []models.ToolResult{
		withStatus("a", models.StatusPassed),
		withStatus("b", models.StatusPassed),
		withStatus("c", models.StatusPassed),
		withStatus("d", models.StatusFailed),
		withStatus("e", models.StatusPassed),
	}
	report := Aggregate(results, RunInfo{})
	if report.Success {
		t.Error("one error-severity violation must fail the run")
	}
	if report.Summary.Passed != 4 || report.Summary.Failed != 1 {
		t.Errorf("Summary = %+v", report.Summary)
	}
	if got := report.Summary.Message; !strings.HasPrefix(got, "1 of 5 validations failed") {
		t.Errorf("Message = %q", got)
	}
}

func TestAggregateOrderIndependent(t *testing.T) {
	results := []models.ToolResult{
		withStatus("eslint", models.StatusWarning),
		withStatus("ruff", models.StatusFailed),
		withStatus("semgrep", models.StatusPassed),
		withStatus("snyk", models.StatusError),
		withStatus("spectral", models.StatusPending),
		withStatus("black", models.StatusPassed),
	}
	results[0].Metadata.FilesProcessed = 3
	results[1].Metadata.FilesProcessed = 5
	info := RunInfo{RunID: "run", State: models.RunStateCompleted, Finished: time.Unix(10, 0)}
	want := Aggregate(results, info)

	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 20; i++ {
		shuffled := append([]models.ToolResult(nil), results...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := Aggregate(shuffled, info)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("report depends on input order (-want +got):\n%s", diff)
		}
	}
}

func TestAggregateSummary(t *testing.T) {
	results := []models.ToolResult{
		withStatus("a", models.StatusPassed),
		withStatus("b", models.StatusWarning),
		withStatus("c", models.StatusError),
		withStatus("d", models.StatusPending),
	}
	results[0].Metadata.FilesProcessed = 7
	results[1].Metadata.FilesProcessed = 2
	report := Aggregate(results, RunInfo{TotalTime: time.Second, Groups: 1})

	want := models.Summary{
		Total:          4,
		Passed:         1,
		Failed:         1,
		Warnings:       1,
		Skipped:        1,
		FilesProcessed: 9,
		Message:        "1 of 4 validations failed (9 files processed)",
	}
	if diff := cmp.Diff(want, report.Summary); diff != "" {
		t.Errorf("Summary mismatch (-want +got):\n%s", diff)
	}
	if report.Details.Execution.TotalTime != models.Millis(time.Second) {
		t.Errorf("TotalTime = %s", report.Details.Execution.TotalTime)
	}
	if d := report.Details.Dimensions[models.DimensionLint]; d.Status != models.StatusError || len(d.Tools) != 4 {
		t.Errorf("dimension detail = %+v", d)
	}
	if d := report.Details.Tools["b"]; d.Warnings != 1 || d.Status != models.StatusWarning {
		t.Errorf("tool detail = %+v", d)
	}
}

func TestAggregateMessages(t *testing.T) {
	tests := []struct {
		name    string
		results []models.ToolResult
		info    RunInfo
		want    string
	}{
		{"all passed", []models.ToolResult{withStatus("a", models.StatusPassed)}, RunInfo{}, "All validations passed (0 files processed)"},
		{"warnings", []models.ToolResult{withStatus("a", models.StatusWarning)}, RunInfo{}, "Validation completed with warnings (0 files processed)"},
		{"unavailable warns", []models.ToolResult{withStatus("a", models.StatusPending)}, RunInfo{}, "Validation completed with warnings (0 files processed)"},
		{"failures first", []models.ToolResult{withStatus("a", models.StatusWarning), withStatus("b", models.StatusFailed)}, RunInfo{}, "1 of 2 validations failed (0 files processed)"},
		{"incomplete", []models.ToolResult{withStatus("a", models.StatusPassed)}, RunInfo{Incomplete: true}, "Validation incomplete (0 files processed)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Aggregate(tt.results, tt.info).Summary.Message; got != tt.want {
				t.Errorf("Message = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAggregateFlattensTaggedEntries(t *testing.T) {
	a := withStatus("ruff", models.StatusFailed)
	a.Errors[0].Action = "check"
	b := withStatus("eslint", models.StatusWarning)
	report := Aggregate([]models.ToolResult{a, b}, RunInfo{})

	wantErrors := []models.Entry{{Tool: "ruff", Action: "check", Message: "ruff fails"}}
	wantWarnings := []models.Entry{{Tool: "eslint", Message: "eslint warns"}}
	if diff := cmp.Diff(wantErrors, report.Errors); diff != "" {
		t.Errorf("Errors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantWarnings, report.Warnings); diff != "" {
		t.Errorf("Warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregateIncompleteIsNeverSuccess(t *testing.T) {
	report := Aggregate([]models.ToolResult{withStatus("a", models.StatusPassed)}, RunInfo{State: models.RunStateFailed, Incomplete: true})
	if report.Success {
		t.Error("incomplete run reported success")
	}
	if report.State != models.RunStateFailed || !report.Incomplete {
		t.Errorf("State = %s, Incomplete = %v", report.State, report.Incomplete)
	}
}
