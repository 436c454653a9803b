package models

import "time"

// RunState tracks a coordinator run through its lifecycle.
type RunState string

const (
	RunStatePlanned      RunState = "planned"
	RunStateInitializing RunState = "initializing"
	RunStateExecuting    RunState = "executing"
	RunStateAggregating  RunState = "aggregating"
	RunStateCompleted    RunState = "completed"
	RunStateFailed       RunState = "failed"
)

// Terminal returns true if no further transitions are possible.
func (s RunState) Terminal() bool {
	return s == RunStateCompleted || s == RunStateFailed
}

// Entry is a flattened warning or error tagged with its origin.
type Entry struct {
	Tool    string `json:"tool" yaml:"tool"`
	Action  string `json:"action" yaml:"action"`
	Message string `json:"message" yaml:"message"`
}

// Summary holds run-wide counts and the human summary message.
type Summary struct {
	Total          int    `json:"total" yaml:"total"`
	Passed         int    `json:"passed" yaml:"passed"`
	Failed         int    `json:"failed" yaml:"failed"`
	Warnings       int    `json:"warnings" yaml:"warnings"`
	Skipped        int    `json:"skipped" yaml:"skipped"`
	FilesProcessed int    `json:"filesProcessed" yaml:"filesProcessed"`
	Message        string `json:"message" yaml:"message"`
}

// ToolDetail is the per-tool breakdown in a report.
type ToolDetail struct {
	Dimension     Dimension    `json:"dimension" yaml:"dimension"`
	Success       bool         `json:"success" yaml:"success"`
	Status        Status       `json:"status" yaml:"status"`
	ExecutionTime Millis       `json:"executionTime" yaml:"executionTime"`
	Errors        int          `json:"errors" yaml:"errors"`
	Warnings      int          `json:"warnings" yaml:"warnings"`
	Results       []ToolResult `json:"results" yaml:"results"`
}

// DimensionDetail is the per-dimension breakdown in a report.
type DimensionDetail struct {
	Success bool     `json:"success" yaml:"success"`
	Status  Status   `json:"status" yaml:"status"`
	Tools   []string `json:"tools" yaml:"tools"`
}

// ExecutionDetail describes timing of the run.
type ExecutionDetail struct {
	TotalTime Millis `json:"totalTime" yaml:"totalTime"`
	Groups    int    `json:"groups" yaml:"groups"`
}

// Details groups the breakdown sections of a report.
type Details struct {
	Tools      map[string]ToolDetail         `json:"tools" yaml:"tools"`
	Dimensions map[Dimension]DimensionDetail `json:"dimensions" yaml:"dimensions"`
	Execution  ExecutionDetail               `json:"execution" yaml:"execution"`
}

// AggregatedReport is the merged verdict of a coordinator run.
type AggregatedReport struct {
	// RunID uniquely identifies the run.
	RunID string `json:"runId" yaml:"runId"`
	// PlanID is the ID of the plan that produced this report.
	PlanID string `json:"planId,omitempty" yaml:"planId,omitempty"`
	// Success is false if any tool result failed.
	Success bool `json:"success" yaml:"success"`
	// Status is the maximum-severity status across all results.
	Status Status `json:"status" yaml:"status"`
	// State is the final lifecycle state of the run.
	State RunState `json:"state" yaml:"state"`
	// Incomplete is set when the run was cancelled or short-circuited.
	Incomplete bool      `json:"incomplete,omitempty" yaml:"incomplete,omitempty"`
	Summary    Summary   `json:"summary" yaml:"summary"`
	Details    Details   `json:"details" yaml:"details"`
	Warnings   []Entry   `json:"warnings" yaml:"warnings"`
	Errors     []Entry   `json:"errors" yaml:"errors"`
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
}
