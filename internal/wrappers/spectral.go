package wrappers

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/ShayCichocki/qacoord/pkg/models"
)

// Spectral lints OpenAPI and AsyncAPI documents.
type Spectral struct {
	*Base
}

// NewSpectral creates the spectral wrapper.
func NewSpectral(deps Deps) Wrapper {
	return &Spectral{Base: newBase(spec{
		name:        "spectral",
		binary:      "spectral",
		kind:        KindConfigBased,
		dimensions:  []models.Dimension{models.DimensionLint},
		scopes:      []models.Scope{models.ScopeAPI},
		policy:      LintStyle,
		configFiles: []string{".spectral.yaml", ".spectral.yml", ".spectral.json", ".spectral.js"},
	}, deps)}
}

// ExecuteRequest implements ConfigWrapper. Documents come from the request
// (config.documents) or the wrapper configuration; missing ones are skipped.
func (w *Spectral) ExecuteRequest(ctx context.Context, opts Options) *models.ToolResult {
	start := time.Now()
	candidates := opts.Request.StringSlice("documents")
	if len(candidates) == 0 && w.deps.Config != nil {
		candidates = w.deps.Config.GetStringSlice(w.configKey("documents"), nil)
	}
	var docs []string
	for _, d := range candidates {
		if w.deps.FS != nil && w.deps.FS.Exists(d) {
			docs = append(docs, d)
		}
	}
	if len(docs) == 0 {
		return w.empty(opts, start, "no api documents")
	}

	args := []string{"lint", "--format", "json", "--fail-severity", "error"}
	cfg := w.findConfig()
	if cfg != "" {
		args = append(args, "--ruleset", cfg)
	}
	args = append(args, w.extraArgs(opts.Request)...)
	args = append(args, docs...)

	res := w.run(ctx, args)
	outcome := w.Policy().Classify(res)

	var violations []models.Violation
	if outcome.Ran {
		violations = w.parse(res.Stdout)
	}
	return w.build(result{
		opts:           opts,
		start:          start,
		outcome:        outcome,
		exitCode:       res.ExitCode,
		violations:     violations,
		filesProcessed: len(docs),
		configFile:     cfg,
		actions:        []string{"lint"},
	})
}

type spectralIssue struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Path     []string `json:"path"`
	Severity int      `json:"severity"`
	Source   string   `json:"source"`
	Range    struct {
		Start struct {
			Line      int `json:"line"`
			Character int `json:"character"`
		} `json:"start"`
	} `json:"range"`
}

// parse maps spectral issues. Severity 0 is an error, 1 a warning; info and
// hint issues are dropped. Positions are zero-based.
func (w *Spectral) parse(stdout string) []models.Violation {
	stdout = strings.TrimSpace(stdout)
	if stdout == "" || strings.HasPrefix(stdout, "No results") {
		return nil
	}
	var issues []spectralIssue
	if err := json.Unmarshal([]byte(stdout), &issues); err != nil {
		w.log.Warn("failed to parse spectral output", "error", err)
		return nil
	}

	var out []models.Violation
	for _, is := range issues {
		var sev models.Severity
		switch is.Severity {
		case 0:
			sev = models.SeverityError
		case 1:
			sev = models.SeverityWarning
		default:
			continue
		}
		msg := is.Message
		if len(is.Path) > 0 {
			msg += " at " + strings.Join(is.Path, ".")
		}
		out = append(out, models.Violation{
			File:     relPath(w.deps.Root, is.Source),
			Line:     is.Range.Start.Line + 1,
			Column:   is.Range.Start.Character + 1,
			Severity: sev,
			Message:  msg,
			Rule:     is.Code,
		})
	}
	return out
}
