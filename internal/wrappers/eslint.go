package wrappers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ShayCichocki/qacoord/internal/semaphore"
	"github.com/ShayCichocki/qacoord/pkg/models"
)

// eslintConfigs in lookup order; flat config first.
var eslintConfigs = []string{
	"eslint.config.js",
	"eslint.config.mjs",
	"eslint.config.cjs",
	".eslintrc.js",
	".eslintrc.cjs",
	".eslintrc.json",
	".eslintrc.yaml",
	".eslintrc.yml",
	".eslintrc",
}

// ESLint lints JavaScript and TypeScript sources.
type ESLint struct {
	*Base
}

// NewESLint creates the eslint wrapper.
func NewESLint(deps Deps) Wrapper {
	return &ESLint{Base: newBase(spec{
		name:        "eslint",
		binary:      "eslint",
		kind:        KindFileBased,
		dimensions:  []models.Dimension{models.DimensionLint},
		scopes:      []models.Scope{models.ScopeFrontend},
		policy:      LintStyle,
		configFiles: eslintConfigs,
	}, deps)}
}

// Extensions implements FileWrapper.
func (w *ESLint) Extensions() []string {
	return []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs", ".vue"}
}

// ExecuteFiles implements FileWrapper.
func (w *ESLint) ExecuteFiles(ctx context.Context, files []string, opts Options) *models.ToolResult {
	start := time.Now()
	targets := selectFiles(files, w.Extensions())
	if len(targets) == 0 {
		return w.empty(opts, start, "no javascript or typescript files")
	}

	args := []string{"--format", "json", "--no-error-on-unmatched-pattern"}
	cfg := w.findConfig()
	if cfg != "" {
		args = append(args, "--config", cfg)
	}
	args = append(args, w.extraArgs(opts.Request)...)
	args = append(args, targets...)

	res := w.run(ctx, args)
	outcome := w.Policy().Classify(res)

	var violations []models.Violation
	if outcome.Ran {
		violations = semaphore.Annotate(w.parse(res.Stdout), semaphore.ESLintExtractors)
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

type eslintFile struct {
	FilePath string `json:"filePath"`
	Messages []struct {
		RuleID   string `json:"ruleId"`
		Severity int    `json:"severity"`
		Message  string `json:"message"`
		Line     int    `json:"line"`
		Column   int    `json:"column"`
	} `json:"messages"`
}

func (w *ESLint) parse(stdout string) []models.Violation {
	var report []eslintFile
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		w.log.Warn("failed to parse eslint output", "error", err)
		return nil
	}

	var out []models.Violation
	for _, f := range report {
		for _, m := range f.Messages {
			sev := models.SeverityWarning
			if m.Severity >= 2 {
				sev = models.SeverityError
			}
			out = append(out, models.Violation{
				File:     relPath(w.deps.Root, f.FilePath),
				Line:     m.Line,
				Column:   m.Column,
				Severity: sev,
				Message:  m.Message,
				Rule:     m.RuleID,
			})
		}
	}
	return out
}
