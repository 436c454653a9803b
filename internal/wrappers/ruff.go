package wrappers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ShayCichocki/qacoord/internal/semaphore"
	"github.com/ShayCichocki/qacoord/pkg/models"
)

// Ruff lints Python sources and adds a lines-of-code check per file.
type Ruff struct {
	*Base
}

// NewRuff creates the ruff wrapper.
func NewRuff(deps Deps) Wrapper {
	return &Ruff{Base: newBase(spec{
		name:        "ruff",
		binary:      "ruff",
		kind:        KindFileBased,
		dimensions:  []models.Dimension{models.DimensionLint},
		scopes:      []models.Scope{models.ScopeBackend},
		policy:      LintStyle,
		configFiles: []string{"ruff.toml", ".ruff.toml", "pyproject.toml"},
	}, deps)}
}

// Extensions implements FileWrapper.
func (w *Ruff) Extensions() []string {
	return []string{".py", ".pyi"}
}

// ExecuteFiles implements FileWrapper.
func (w *Ruff) ExecuteFiles(ctx context.Context, files []string, opts Options) *models.ToolResult {
	start := time.Now()
	targets := selectFiles(files, w.Extensions())
	if len(targets) == 0 {
		return w.empty(opts, start, "no python files")
	}

	args := []string{"check", "--output-format", "json"}
	cfg := w.findConfig()
	if cfg != "" {
		args = append(args, "--config", cfg)
	}
	if opts.Mode == models.ModeFull {
		args = append(args, "--no-cache")
	}
	args = append(args, w.extraArgs(opts.Request)...)
	args = append(args, targets...)

	res := w.run(ctx, args)
	outcome := w.Policy().Classify(res)

	var violations []models.Violation
	if outcome.Ran {
		violations = semaphore.Annotate(w.parse(res.Stdout), semaphore.RuffExtractors)
		violations = append(violations, w.locViolations(targets)...)
	}
	return w.build(result{
		opts:           opts,
		start:          start,
		outcome:        outcome,
		exitCode:       res.ExitCode,
		violations:     violations,
		filesProcessed: len(targets),
		configFile:     cfg,
	})
}

type ruffDiagnostic struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Location struct {
		Row    int `json:"row"`
		Column int `json:"column"`
	} `json:"location"`
}

// parse maps ruff diagnostics to violations. Ruff has no severities; every
// diagnostic fails the check except the design-metric rules, whose
// severity follows their semaphore band.
func (w *Ruff) parse(stdout string) []models.Violation {
	var diags []ruffDiagnostic
	if err := json.Unmarshal([]byte(stdout), &diags); err != nil {
		w.log.Warn("failed to parse ruff output", "error", err)
		return nil
	}

	out := make([]models.Violation, 0, len(diags))
	for _, d := range diags {
		v := models.Violation{
			File:     relPath(w.deps.Root, d.Filename),
			Line:     d.Location.Row,
			Column:   d.Location.Column,
			Severity: models.SeverityError,
			Message:  d.Message,
			Rule:     d.Code,
		}
		if ex, ok := semaphore.RuffExtractors[d.Code]; ok {
			if value, ok := ex.Extract(d.Message); ok && semaphore.Metrics(ex.Metric, value).Classification == models.ClassificationYellow {
				v.Severity = models.SeverityWarning
			}
		}
		out = append(out, v)
	}
	return out
}

// locViolations reads each file and synthesizes max-lines findings.
func (w *Ruff) locViolations(targets []string) []models.Violation {
	if w.deps.FS == nil {
		return nil
	}
	var out []models.Violation
	for _, f := range targets {
		src, err := w.deps.FS.ReadFile(f)
		if err != nil {
			w.log.Debug("skipping lines-of-code check", "file", f, "error", err)
			continue
		}
		if v, ok := semaphore.LOCViolation(f, semaphore.CountPythonLOC(src)); ok {
			out = append(out, v)
		}
	}
	return out
}
