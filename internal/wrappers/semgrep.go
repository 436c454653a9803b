package wrappers

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/ShayCichocki/qacoord/pkg/models"
)

// Semgrep runs static security analysis with per-scope rulesets.
type Semgrep struct {
	*Base
}

// NewSemgrep creates the semgrep wrapper.
func NewSemgrep(deps Deps) Wrapper {
	return &Semgrep{Base: newBase(spec{
		name:        "semgrep",
		binary:      "semgrep",
		kind:        KindConfigBased,
		dimensions:  []models.Dimension{models.DimensionSecurity},
		scopes:      []models.Scope{models.ScopeFrontend, models.ScopeBackend, models.ScopeInfrastructure, models.ScopeAPI, models.ScopeAll},
		policy:      LintStyle,
		configFiles: []string{".semgrep.yml", ".semgrep.yaml", ".semgrep"},
	}, deps)}
}

// ExecuteRequest implements ConfigWrapper. The scope's rulesets and a
// local .semgrep config, when present, run in one invocation.
func (w *Semgrep) ExecuteRequest(ctx context.Context, opts Options) *models.ToolResult {
	start := time.Now()
	rulesets := w.scopeActions(opts.Request)
	cfg := w.findConfig()
	if cfg != "" {
		rulesets = append(rulesets, cfg)
	}
	if len(rulesets) == 0 {
		rulesets = []string{"auto"}
	}

	args := []string{"scan", "--json", "--error", "--quiet"}
	for _, r := range rulesets {
		args = append(args, "--config", r)
	}
	args = append(args, w.extraArgs(opts.Request)...)
	paths := w.scopePaths(opts.Request.Scope)
	args = append(args, paths...)

	res := w.run(ctx, args)
	outcome := w.Policy().Classify(res)

	var violations []models.Violation
	var warnings []models.Message
	filesProcessed := 0
	if outcome.Ran {
		violations, warnings, filesProcessed = w.parse(res.Stdout)
	}
	return w.build(result{
		opts:           opts,
		start:          start,
		outcome:        outcome,
		exitCode:       res.ExitCode,
		violations:     violations,
		warnings:       warnings,
		filesProcessed: filesProcessed,
		configFile:     cfg,
		actions:        rulesets,
	})
}

type semgrepOutput struct {
	Results []struct {
		CheckID string `json:"check_id"`
		Path    string `json:"path"`
		Start   struct {
			Line int `json:"line"`
			Col  int `json:"col"`
		} `json:"start"`
		Extra struct {
			Message  string `json:"message"`
			Severity string `json:"severity"`
		} `json:"extra"`
	} `json:"results"`
	Errors []struct {
		Message string `json:"message"`
		Level   string `json:"level"`
	} `json:"errors"`
	Paths struct {
		Scanned []string `json:"scanned"`
	} `json:"paths"`
}

// parse maps findings to violations. Semgrep ERROR findings fail the check;
// WARNING and INFO findings are reported only. Scanner errors such as
// unparsable files become result warnings.
func (w *Semgrep) parse(stdout string) ([]models.Violation, []models.Message, int) {
	var out semgrepOutput
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		w.log.Warn("failed to parse semgrep output", "error", err)
		return nil, nil, 0
	}

	violations := make([]models.Violation, 0, len(out.Results))
	for _, r := range out.Results {
		sev := models.SeverityWarning
		if strings.EqualFold(r.Extra.Severity, "ERROR") {
			sev = models.SeverityError
		}
		violations = append(violations, models.Violation{
			File:     relPath(w.deps.Root, r.Path),
			Line:     r.Start.Line,
			Column:   r.Start.Col,
			Severity: sev,
			Message:  strings.TrimSpace(r.Extra.Message),
			Rule:     r.CheckID,
		})
	}

	var warnings []models.Message
	for _, e := range out.Errors {
		warnings = append(warnings, models.Message{Text: firstLine(e.Message)})
	}
	return violations, warnings, len(out.Paths.Scanned)
}
