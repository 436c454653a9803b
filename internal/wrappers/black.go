package wrappers

import (
	"context"
	"strings"
	"time"

	"github.com/ShayCichocki/qacoord/pkg/models"
)

// Black checks Python formatting.
type Black struct {
	*Base
}

// NewBlack creates the black wrapper.
func NewBlack(deps Deps) Wrapper {
	return &Black{Base: newBase(spec{
		name:        "black",
		binary:      "black",
		kind:        KindFileBased,
		dimensions:  []models.Dimension{models.DimensionFormat},
		scopes:      []models.Scope{models.ScopeBackend},
		policy:      LintStyle,
		configFiles: []string{"pyproject.toml"},
	}, deps)}
}

// Extensions implements FileWrapper.
func (w *Black) Extensions() []string {
	return []string{".py", ".pyi"}
}

// ExecuteFiles implements FileWrapper.
func (w *Black) ExecuteFiles(ctx context.Context, files []string, opts Options) *models.ToolResult {
	start := time.Now()
	targets := selectFiles(files, w.Extensions())
	if len(targets) == 0 {
		return w.empty(opts, start, "no python files")
	}

	args := []string{"--check"}
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
		violations = parseBlack(w.deps.Root, res.Stderr)
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

// parseBlack reads "would reformat <file>" lines from black's stderr.
func parseBlack(root, stderr string) []models.Violation {
	const marker = "would reformat "
	var out []models.Violation
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, marker) {
			continue
		}
		out = append(out, models.Violation{
			File:     relPath(root, strings.TrimPrefix(line, marker)),
			Severity: models.SeverityError,
			Message:  "File would be reformatted",
			Rule:     "black",
		})
	}
	return out
}
