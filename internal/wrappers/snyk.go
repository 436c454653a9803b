package wrappers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/ShayCichocki/qacoord/pkg/models"
)

// Snyk exit codes: 1 means issues found, 3 means no supported project was
// detected for the action.
var snykPolicy = ExitPolicy{Name: "snyk", FindingsCodes: []int{1, 3}}

// snykActions maps action names to subcommands.
var snykActions = map[string][]string{
	"test": {"test"},
	"code": {"code", "test"},
	"iac":  {"iac", "test"},
}

// Snyk runs dependency, code and infrastructure scans chosen per scope.
type Snyk struct {
	*Base
}

// NewSnyk creates the snyk wrapper.
func NewSnyk(deps Deps) Wrapper {
	return &Snyk{Base: newBase(spec{
		name:        "snyk",
		binary:      "snyk",
		kind:        KindConfigBased,
		dimensions:  []models.Dimension{models.DimensionSecurity},
		scopes:      []models.Scope{models.ScopeFrontend, models.ScopeBackend, models.ScopeInfrastructure, models.ScopeAPI, models.ScopeAll},
		policy:      snykPolicy,
		configFiles: []string{".snyk"},
	}, deps)}
}

// ExecuteRequest implements ConfigWrapper.
func (w *Snyk) ExecuteRequest(ctx context.Context, opts Options) *models.ToolResult {
	start := time.Now()
	actions := w.scopeActions(opts.Request)
	if len(actions) == 0 {
		return w.empty(opts, start, "no snyk actions for scope")
	}

	threshold := opts.Request.String("severity_threshold")
	if threshold == "" && w.deps.Config != nil {
		threshold = w.deps.Config.GetString(w.configKey("severity_threshold"), "")
	}

	runs := make([]actionRun, 0, len(actions))
	for _, action := range actions {
		if ctx.Err() != nil {
			break
		}
		sub, ok := snykActions[action]
		if !ok {
			runs = append(runs, actionRun{action: action, outcome: Outcome{Fault: fmt.Sprintf("unknown snyk action %q", action)}})
			continue
		}
		args := append(append([]string{}, sub...), "--json")
		if threshold != "" {
			args = append(args, "--severity-threshold="+threshold)
		}
		args = append(args, w.extraArgs(opts.Request)...)

		res := w.run(ctx, args)
		run := actionRun{action: action, outcome: w.Policy().Classify(res), exitCode: res.ExitCode}
		if run.outcome.Ran && res.ExitCode != 3 {
			run.violations = w.parse(action, res.Stdout)
		}
		runs = append(runs, run)
	}
	return w.merge(opts, start, runs, 0, w.findConfig())
}

// parse handles the three snyk JSON shapes: dependency reports (object or
// array of objects), SARIF for code scans, and IaC issue reports.
func (w *Snyk) parse(action, stdout string) []models.Violation {
	if !gjson.Valid(stdout) {
		w.log.Warn("failed to parse snyk output", "action", action)
		return nil
	}
	doc := gjson.Parse(stdout)

	var out []models.Violation
	if action == "code" {
		doc.Get("runs.#.results|@flatten").ForEach(func(_, r gjson.Result) bool {
			loc := r.Get("locations.0.physicalLocation")
			sev := models.SeverityWarning
			if r.Get("level").String() == "error" {
				sev = models.SeverityError
			}
			out = append(out, models.Violation{
				File:     relPath(w.deps.Root, loc.Get("artifactLocation.uri").String()),
				Line:     int(loc.Get("region.startLine").Int()),
				Column:   int(loc.Get("region.startColumn").Int()),
				Severity: sev,
				Message:  r.Get("message.text").String(),
				Rule:     r.Get("ruleId").String(),
			})
			return true
		})
		return out
	}

	projects := []gjson.Result{doc}
	if doc.IsArray() {
		projects = doc.Array()
	}
	for _, p := range projects {
		if action == "iac" {
			file := p.Get("targetFile").String()
			p.Get("infrastructureAsCodeIssues").ForEach(func(_, issue gjson.Result) bool {
				out = append(out, models.Violation{
					File:     relPath(w.deps.Root, file),
					Line:     int(issue.Get("lineNumber").Int()),
					Severity: snykSeverity(issue.Get("severity").String()),
					Message:  issue.Get("title").String(),
					Rule:     issue.Get("id").String(),
				})
				return true
			})
			continue
		}

		file := p.Get("displayTargetFile").String()
		seen := make(map[string]bool)
		p.Get("vulnerabilities").ForEach(func(_, v gjson.Result) bool {
			id := v.Get("id").String()
			pkg := v.Get("packageName").String() + "@" + v.Get("version").String()
			if seen[id+pkg] {
				return true
			}
			seen[id+pkg] = true
			out = append(out, models.Violation{
				File:     relPath(w.deps.Root, file),
				Severity: snykSeverity(v.Get("severity").String()),
				Message:  fmt.Sprintf("%s in %s", v.Get("title").String(), pkg),
				Rule:     id,
			})
			return true
		})
	}
	return out
}

// snykSeverity fails the check on critical and high issues.
func snykSeverity(s string) models.Severity {
	switch strings.ToLower(s) {
	case "critical", "high":
		return models.SeverityError
	default:
		return models.SeverityWarning
	}
}
