package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/qacoord/pkg/models"
)

func init() {
	color.NoColor = true
}

func sampleReport() *models.AggregatedReport {
	ruff := models.ToolResult{
		Tool:          "ruff",
		Dimension:     models.DimensionLint,
		Scope:         models.ScopeBackend,
		Status:        models.StatusFailed,
		ExecutionTime: models.Millis(250 * time.Millisecond),
		Violations: []models.Violation{
			{File: "app.py", Line: 3, Column: 1, Severity: models.SeverityError, Message: "unused import", Rule: "F401"},
			{File: "big.py", Line: 1, Column: 1, Severity: models.SeverityWarning, Message: "too complex", Rule: "C901",
				DesignMetrics: &models.DesignMetrics{Metric: "complexity", Value: 12, Classification: models.ClassificationYellow, Emoji: "🟡", Threshold: "10 < complexity <= 15"}},
		},
		Metadata: models.ResultMetadata{FilesProcessed: 2, ExitCode: 1},
	}
	black := models.ToolResult{
		Tool:      "black",
		Dimension: models.DimensionFormat,
		Success:   true,
		Status:    models.StatusPending,
		Metadata:  models.ResultMetadata{Unavailable: true},
	}
	return &models.AggregatedReport{
		RunID:  "0123456789abcdef",
		Status: models.StatusFailed,
		State:  models.RunStateCompleted,
		Summary: models.Summary{
			Total: 2, Failed: 1, Skipped: 1, FilesProcessed: 2,
			Message: "1 of 2 validations failed (2 files processed)",
		},
		Details: models.Details{
			Tools: map[string]models.ToolDetail{
				"ruff":  {Dimension: models.DimensionLint, Status: models.StatusFailed, Errors: 1, Warnings: 1, ExecutionTime: ruff.ExecutionTime, Results: []models.ToolResult{ruff}},
				"black": {Dimension: models.DimensionFormat, Success: true, Status: models.StatusPending, Results: []models.ToolResult{black}},
			},
			Dimensions: map[models.Dimension]models.DimensionDetail{
				models.DimensionLint:   {Status: models.StatusFailed, Tools: []string{"ruff"}},
				models.DimensionFormat: {Success: true, Status: models.StatusPending, Tools: []string{"black"}},
			},
			Execution: models.ExecutionDetail{TotalTime: models.Millis(2 * time.Second), Groups: 2},
		},
		Errors:   []models.Entry{{Tool: "ruff", Message: "app.py:3:1 unused import (F401)"}},
		Warnings: []models.Entry{{Tool: "black", Message: "black is not installed"}},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatConsole, false},
		{"console", FormatConsole, false},
		{"TREE", FormatTree, false},
		{" json ", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleReport(), FormatJSON); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	var decoded models.AggregatedReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Status != models.StatusFailed || decoded.Summary.Failed != 1 {
		t.Errorf("decoded status=%s failed=%d", decoded.Status, decoded.Summary.Failed)
	}
	if got := decoded.Details.Tools["ruff"].Results[0].Violations[1].DesignMetrics; got == nil || got.Classification != models.ClassificationYellow {
		t.Errorf("design metrics lost in JSON: %+v", got)
	}
}

func TestWriteJSONTimesInMilliseconds(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleReport(), FormatJSON); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	var raw struct {
		Details struct {
			Tools map[string]struct {
				ExecutionTime float64 `json:"executionTime"`
				Results       []struct {
					ExecutionTime float64 `json:"executionTime"`
				} `json:"results"`
			} `json:"tools"`
			Execution struct {
				TotalTime float64 `json:"totalTime"`
			} `json:"execution"`
		} `json:"details"`
	}
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if got := raw.Details.Execution.TotalTime; got != 2000 {
		t.Errorf("totalTime = %v, want 2000", got)
	}
	ruff := raw.Details.Tools["ruff"]
	if ruff.ExecutionTime != 250 || ruff.Results[0].ExecutionTime != 250 {
		t.Errorf("ruff executionTime = %v / %v, want 250", ruff.ExecutionTime, ruff.Results[0].ExecutionTime)
	}

	var decoded models.AggregatedReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Details.Execution.TotalTime.Duration() != 2*time.Second {
		t.Errorf("decoded TotalTime = %s", decoded.Details.Execution.TotalTime)
	}
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleReport(), FormatYAML); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	var decoded map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if decoded["status"] != "failed" {
		t.Errorf("status = %v, want failed", decoded["status"])
	}
	if decoded["runId"] != "0123456789abcdef" {
		t.Errorf("runId = %v", decoded["runId"])
	}
	execution := decoded["details"].(map[string]any)["execution"].(map[string]any)
	if execution["totalTime"] != 2000 {
		t.Errorf("totalTime = %v (%T), want 2000", execution["totalTime"], execution["totalTime"])
	}
}

func TestWriteConsole(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleReport(), FormatConsole); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"1 of 2 validations failed (2 files processed)",
		"ruff",
		"black",
		"250ms",
		"Errors (1):",
		"[ruff] app.py:3:1 unused import (F401)",
		"Warnings (1):",
		"🟡 big.py:1 complexity=12",
		"2 total, 0 passed, 1 failed, 0 warnings, 1 skipped",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "black") > strings.Index(out, "ruff") {
		t.Errorf("tools not sorted by name:\n%s", out)
	}
}

func TestWriteConsoleIncomplete(t *testing.T) {
	r := sampleReport()
	r.Incomplete = true
	r.State = models.RunStateFailed
	var buf bytes.Buffer
	if err := WriteConsole(&buf, r); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "run incomplete (state: failed)") {
		t.Errorf("missing incomplete notice:\n%s", buf.String())
	}
}

func TestWriteConsoleTruncatesEntries(t *testing.T) {
	r := sampleReport()
	r.Errors = nil
	for i := 0; i < maxListed+5; i++ {
		r.Errors = append(r.Errors, models.Entry{Tool: "eslint", Message: "x"})
	}
	var buf bytes.Buffer
	if err := WriteConsole(&buf, r); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "... and 5 more") {
		t.Errorf("expected truncation marker:\n%s", buf.String())
	}
}

func TestWriteTree(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleReport(), FormatTree); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"QA run 01234567",
		"format",
		"black",
		"unavailable",
		"ruff (backend)",
		"app.py:3 unused import",
		"too complex 🟡",
		"1 of 2 validations failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("tree output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "format") > strings.Index(out, "lint") {
		t.Errorf("dimensions not in canonical order:\n%s", out)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[time.Duration]string{
		0:                       "-",
		42 * time.Millisecond:   "42ms",
		1540 * time.Millisecond: "1.5s",
	}
	for d, want := range tests {
		if got := formatDuration(d); got != want {
			t.Errorf("formatDuration(%v) = %q, want %q", d, got, want)
		}
	}
}
