package models

import "time"

// Severity is the binary severity of a violation.
type Severity string

const (
	// SeverityError fails the whole run when present anywhere.
	SeverityError Severity = "error"
	// SeverityWarning is reported but never affects the verdict.
	SeverityWarning Severity = "warning"
)

// Classification is a semaphore band for a numeric design metric.
type Classification string

const (
	ClassificationGreen  Classification = "green"
	ClassificationYellow Classification = "yellow"
	ClassificationRed    Classification = "red"
)

// Emoji returns the traffic-light glyph for the band.
func (c Classification) Emoji() string {
	switch c {
	case ClassificationGreen:
		return "🟢"
	case ClassificationYellow:
		return "🟡"
	case ClassificationRed:
		return "🔴"
	default:
		return ""
	}
}

// DesignMetrics annotates a violation with its semaphore classification.
type DesignMetrics struct {
	// Metric is the metric name (complexity, lines_of_code, line_length).
	Metric string `json:"metric" yaml:"metric"`
	// Value is the numeric value extracted from the tool message.
	Value int `json:"value" yaml:"value"`
	// Classification is the green/yellow/red band.
	Classification Classification `json:"classification" yaml:"classification"`
	// Emoji mirrors Classification for console output.
	Emoji string `json:"emoji" yaml:"emoji"`
	// Threshold is the textual rule that produced the classification.
	Threshold string `json:"threshold" yaml:"threshold"`
}

// Violation is one normalized tool finding.
type Violation struct {
	File          string         `json:"file" yaml:"file"`
	Line          int            `json:"line" yaml:"line"`
	Column        int            `json:"column" yaml:"column"`
	Severity      Severity       `json:"severity" yaml:"severity"`
	Message       string         `json:"message" yaml:"message"`
	Rule          string         `json:"rule,omitempty" yaml:"rule,omitempty"`
	DesignMetrics *DesignMetrics `json:"designMetrics,omitempty" yaml:"designMetrics,omitempty"`
}

// Status is the discrete outcome of a tool result or a whole run.
type Status string

const (
	StatusPending Status = "pending"
	StatusPassed  Status = "passed"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
	StatusFailed  Status = "failed"
)

// Rank returns the position of the status in the severity hierarchy
// failed(4) > error(3) > warning(2) > passed(1) > pending(0).
func (s Status) Rank() int {
	switch s {
	case StatusFailed:
		return 4
	case StatusError:
		return 3
	case StatusWarning:
		return 2
	case StatusPassed:
		return 1
	default:
		return 0
	}
}

// MaxStatus returns the highest-ranked status, or pending when none are given.
func MaxStatus(statuses ...Status) Status {
	best := StatusPending
	for _, s := range statuses {
		if s.Rank() > best.Rank() {
			best = s
		}
	}
	return best
}

// Message is a warning or error tagged with the sub-action that produced it.
type Message struct {
	Action string `json:"action,omitempty" yaml:"action,omitempty"`
	Text   string `json:"message" yaml:"message"`
}

// ResultMetadata holds free-form facts about a single invocation.
type ResultMetadata struct {
	FilesProcessed int      `json:"filesProcessed" yaml:"filesProcessed"`
	ExitCode       int      `json:"exitCode" yaml:"exitCode"`
	Version        string   `json:"version,omitempty" yaml:"version,omitempty"`
	ConfigFile     string   `json:"configFile,omitempty" yaml:"configFile,omitempty"`
	Unavailable    bool     `json:"unavailable,omitempty" yaml:"unavailable,omitempty"`
	Skipped        bool     `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	TimedOut       bool     `json:"timedOut,omitempty" yaml:"timedOut,omitempty"`
	Cancelled      bool     `json:"cancelled,omitempty" yaml:"cancelled,omitempty"`
	Actions        []string `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// ToolResult is the outcome of one wrapper invocation.
type ToolResult struct {
	Tool          string         `json:"tool" yaml:"tool"`
	Dimension     Dimension      `json:"dimension" yaml:"dimension"`
	Scope         Scope          `json:"scope,omitempty" yaml:"scope,omitempty"`
	Success       bool           `json:"success" yaml:"success"`
	Status        Status         `json:"status" yaml:"status"`
	ExecutionTime Millis         `json:"executionTime" yaml:"executionTime"`
	Violations    []Violation    `json:"violations" yaml:"violations"`
	Metadata      ResultMetadata `json:"metadata" yaml:"metadata"`
	Warnings      []Message      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Errors        []Message      `json:"errors,omitempty" yaml:"errors,omitempty"`
	// Error is set when the tool itself could not be executed.
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// HasErrorViolation reports whether any violation has error severity.
func (r *ToolResult) HasErrorViolation() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityError {
			return true
		}
	}
	return false
}

// CountSeverity returns the number of violations with the given severity.
func (r *ToolResult) CountSeverity(sev Severity) int {
	n := 0
	for _, v := range r.Violations {
		if v.Severity == sev {
			n++
		}
	}
	return n
}

// DeriveStatus computes the discrete status from success, execution error
// and violation severities.
func (r *ToolResult) DeriveStatus() Status {
	switch {
	case r.Metadata.Unavailable && r.Success, r.Metadata.Skipped && r.Success:
		return StatusPending
	case r.Error != "" && !r.HasErrorViolation():
		return StatusError
	case !r.Success:
		return StatusFailed
	case r.CountSeverity(SeverityWarning) > 0:
		return StatusWarning
	default:
		return StatusPassed
	}
}
