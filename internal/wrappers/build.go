package wrappers

import (
	"context"
	"strings"
	"time"

	"github.com/ShayCichocki/qacoord/pkg/models"
)

// Build runs the build commands configured for a scope. Each command is an
// argv line split on whitespace; it never goes through a shell.
type Build struct {
	*Base
}

// NewBuild creates the build wrapper.
func NewBuild(deps Deps) Wrapper {
	return &Build{Base: newBase(spec{
		name:       "build",
		kind:       KindConfigBased,
		dimensions: []models.Dimension{models.DimensionBuild},
		scopes:     []models.Scope{models.ScopeFrontend, models.ScopeBackend, models.ScopeInfrastructure, models.ScopeAll},
		policy:     ExecutionStyle,
	}, deps)}
}

// Version implements Wrapper. Build has no single binary.
func (w *Build) Version(context.Context) (string, error) { return "", nil }

// IsAvailable implements Wrapper. Availability of the configured commands
// is checked when they run; a missing binary is an execution failure.
func (w *Build) IsAvailable(context.Context) bool { return true }

// ExecuteRequest implements ConfigWrapper. Commands run in order and stop
// at the first failure.
func (w *Build) ExecuteRequest(ctx context.Context, opts Options) *models.ToolResult {
	start := time.Now()
	commands := w.scopeActions(opts.Request)
	if len(commands) == 0 {
		return w.empty(opts, start, "no build commands for scope")
	}

	var runs []actionRun
	for _, command := range commands {
		argv := strings.Fields(command)
		if len(argv) == 0 {
			continue
		}
		res := w.runBinary(ctx, argv[0], argv[1:])
		run := actionRun{action: command, outcome: w.Policy().Classify(res), exitCode: res.ExitCode}
		runs = append(runs, run)
		if !run.outcome.Ran {
			break
		}
	}
	return w.merge(opts, start, runs, 0, "")
}
