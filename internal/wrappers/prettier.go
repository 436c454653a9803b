package wrappers

import (
	"context"
	"strings"
	"time"

	"github.com/ShayCichocki/qacoord/pkg/models"
)

// Prettier checks formatting of web sources.
type Prettier struct {
	*Base
}

// NewPrettier creates the prettier wrapper.
func NewPrettier(deps Deps) Wrapper {
	return &Prettier{Base: newBase(spec{
		name:       "prettier",
		binary:     "prettier",
		kind:       KindFileBased,
		dimensions: []models.Dimension{models.DimensionFormat},
		scopes:     []models.Scope{models.ScopeFrontend},
		policy:     LintStyle,
		configFiles: []string{
			".prettierrc",
			".prettierrc.json",
			".prettierrc.yaml",
			".prettierrc.yml",
			".prettierrc.js",
			"prettier.config.js",
		},
	}, deps)}
}

// Extensions implements FileWrapper.
func (w *Prettier) Extensions() []string {
	return []string{".js", ".jsx", ".ts", ".tsx", ".css", ".scss", ".json", ".md", ".html", ".vue", ".yaml", ".yml"}
}

// ExecuteFiles implements FileWrapper.
func (w *Prettier) ExecuteFiles(ctx context.Context, files []string, opts Options) *models.ToolResult {
	start := time.Now()
	targets := selectFiles(files, w.Extensions())
	if len(targets) == 0 {
		return w.empty(opts, start, "no formattable files")
	}

	args := []string{"--list-different"}
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
		for _, line := range strings.Split(res.Stdout, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			violations = append(violations, models.Violation{
				File:     relPath(w.deps.Root, line),
				Severity: models.SeverityError,
				Message:  "File is not formatted",
				Rule:     "prettier",
			})
		}
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
