package wrappers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/ShayCichocki/qacoord/pkg/models"
)

// dataAction is one dependency-integrity check.
type dataAction struct {
	binary   string
	args     []string
	manifest string
	parse    func(root, stdout string) []models.Violation
}

var dataActions = map[string]dataAction{
	"npm-ls": {
		binary:   "npm",
		args:     []string{"ls", "--json", "--all"},
		manifest: "package.json",
		parse:    parseNpmLs,
	},
	"pip-check": {
		binary: "pip",
		args:   []string{"check"},
		parse:  parsePipCheck,
	},
}

// Data validates dependency integrity for the package managers of a scope.
type Data struct {
	*Base
}

// NewData creates the data wrapper.
func NewData(deps Deps) Wrapper {
	return &Data{Base: newBase(spec{
		name:       "data",
		kind:       KindConfigBased,
		dimensions: []models.Dimension{models.DimensionData},
		scopes:     []models.Scope{models.ScopeFrontend, models.ScopeBackend, models.ScopeAll},
		policy:     LintStyle,
	}, deps)}
}

// Version implements Wrapper.
func (w *Data) Version(context.Context) (string, error) { return "", nil }

// IsAvailable implements Wrapper. Data is available when any of its
// package managers is installed.
func (w *Data) IsAvailable(context.Context) bool {
	for _, a := range dataActions {
		if w.deps.Runner.LookPath(w.deps.Root, a.binary) != "" {
			return true
		}
	}
	w.log.Warn("no package manager found")
	return false
}

// ExecuteRequest implements ConfigWrapper. Actions whose manifest is absent
// are skipped.
func (w *Data) ExecuteRequest(ctx context.Context, opts Options) *models.ToolResult {
	start := time.Now()
	var runs []actionRun
	for _, name := range w.scopeActions(opts.Request) {
		if ctx.Err() != nil {
			break
		}
		a, ok := dataActions[name]
		if !ok {
			runs = append(runs, actionRun{action: name, outcome: Outcome{Fault: fmt.Sprintf("unknown data action %q", name)}})
			continue
		}
		if a.manifest != "" && (w.deps.FS == nil || !w.deps.FS.Exists(a.manifest)) {
			w.log.Debug("manifest missing, skipping", "action", name, "manifest", a.manifest)
			continue
		}
		if w.deps.Runner.LookPath(w.deps.Root, a.binary) == "" {
			w.log.Warn("package manager not found, skipping", "action", name, "binary", a.binary)
			continue
		}

		res := w.runBinary(ctx, a.binary, a.args)
		run := actionRun{action: name, outcome: w.Policy().Classify(res), exitCode: res.ExitCode}
		if run.outcome.Ran {
			run.violations = a.parse(w.deps.Root, res.Stdout)
		}
		runs = append(runs, run)
	}
	if len(runs) == 0 {
		return w.empty(opts, start, "no dependency checks apply")
	}
	return w.merge(opts, start, runs, 0, "")
}

// parseNpmLs reads the problems array of npm ls --json.
func parseNpmLs(_ string, stdout string) []models.Violation {
	var out []models.Violation
	gjson.Get(stdout, "problems").ForEach(func(_, p gjson.Result) bool {
		out = append(out, models.Violation{
			File:     "package.json",
			Severity: models.SeverityError,
			Message:  p.String(),
			Rule:     "npm-ls",
		})
		return true
	})
	return out
}

// parsePipCheck reads "pkg 1.0 has requirement x>=2, but you have x 1.0."
// style lines.
func parsePipCheck(_ string, stdout string) []models.Violation {
	var out []models.Violation
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "No broken requirements") {
			continue
		}
		out = append(out, models.Violation{
			Severity: models.SeverityError,
			Message:  line,
			Rule:     "pip-check",
		})
	}
	return out
}
