package wrappers

import (
	"fmt"
	"slices"
	"strings"
	"time"

	iexec "github.com/ShayCichocki/qacoord/internal/exec"
)

// ExitPolicy is a wrapper's explicit exit-code convention. Exit code 0 is
// always a clean run; FindingsCodes are exit codes that mean "the tool ran
// and reported findings"; anything else is an execution fault.
type ExitPolicy struct {
	Name          string
	FindingsCodes []int
}

var (
	// LintStyle tools exit 1 to signal violations found.
	LintStyle = ExitPolicy{Name: "lint", FindingsCodes: []int{1}}
	// ExecutionStyle tools fail on any non-zero exit.
	ExecutionStyle = ExitPolicy{Name: "execution"}
)

// Outcome classifies a process result under the policy.
type Outcome struct {
	// Ran is true when output can be parsed for findings.
	Ran bool
	// Fault describes why the tool itself failed; empty when Ran.
	Fault string
	// TimedOut and Cancelled mirror the process result.
	TimedOut  bool
	Cancelled bool
}

// Classify interprets a process result.
func (p ExitPolicy) Classify(res *iexec.ProcessResult) Outcome {
	switch {
	case res.TimedOut:
		return Outcome{Fault: fmt.Sprintf("timed out after %s", res.Duration.Round(time.Millisecond)), TimedOut: true}
	case res.Cancelled:
		return Outcome{Fault: "cancelled", Cancelled: true}
	case !res.Started():
		return Outcome{Fault: res.Err.Error()}
	case res.ExitCode == 0:
		return Outcome{Ran: true}
	case slices.Contains(p.FindingsCodes, res.ExitCode):
		return Outcome{Ran: true}
	default:
		return Outcome{Fault: fmt.Sprintf("exited with code %d%s", res.ExitCode, tail(res.Stderr))}
	}
}

const maxTailRunes = 200

// tail returns the last non-empty line of s, prefixed for appending to a message.
func tail(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			if r := []rune(l); len(r) > maxTailRunes {
				l = string(r[:maxTailRunes]) + "..."
			}
			return ": " + l
		}
	}
	return ""
}
