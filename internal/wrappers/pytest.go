package wrappers

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/ShayCichocki/qacoord/pkg/models"
)

// pytestPolicy: exit 1 means failing tests, exit 5 means nothing was
// collected. Usage errors, interrupts and internal errors are faults.
var pytestPolicy = ExitPolicy{Name: "pytest", FindingsCodes: []int{1, 5}}

// pytestSummary matches -rA short summary lines such as
// "FAILED tests/test_api.py::test_get - AssertionError: boom".
var pytestSummary = regexp.MustCompile(`^(FAILED|ERROR)\s+(\S+?)(?:::(\S+))?(?:\s+-\s+(.*))?$`)

// Pytest runs Python test suites.
type Pytest struct {
	*Base
}

// NewPytest creates the pytest wrapper.
func NewPytest(deps Deps) Wrapper {
	return &Pytest{Base: newBase(spec{
		name:        "pytest",
		binary:      "pytest",
		kind:        KindFileBased,
		dimensions:  []models.Dimension{models.DimensionTest},
		scopes:      []models.Scope{models.ScopeBackend},
		policy:      pytestPolicy,
		configFiles: []string{"pytest.ini", "pyproject.toml", "tox.ini", "setup.cfg"},
	}, deps)}
}

// Extensions implements FileWrapper.
func (w *Pytest) Extensions() []string {
	return []string{".py"}
}

// ExecuteFiles implements FileWrapper. Only test modules are passed to
// pytest; in fast mode the run stops at the first failure unless the
// request sets max_fail.
func (w *Pytest) ExecuteFiles(ctx context.Context, files []string, opts Options) *models.ToolResult {
	start := time.Now()
	var targets []string
	for _, f := range selectFiles(files, w.Extensions()) {
		if isPythonTest(f) {
			targets = append(targets, f)
		}
	}
	if len(targets) == 0 {
		return w.empty(opts, start, "no test modules")
	}

	args := []string{"-rA", "-q", "--no-header"}
	if n := opts.Request.Int("max_fail", 0); n > 0 {
		args = append(args, fmt.Sprintf("--maxfail=%d", n))
	} else if opts.Mode != models.ModeFull {
		args = append(args, "-x")
	}
	cfg := w.findConfig()
	if cfg != "" {
		args = append(args, "-c", cfg)
	}
	args = append(args, w.extraArgs(opts.Request)...)
	args = append(args, targets...)

	res := w.run(ctx, args)
	outcome := w.Policy().Classify(res)

	var violations []models.Violation
	if outcome.Ran {
		violations = parsePytest(res.Stdout)
		if res.ExitCode == 1 && len(violations) == 0 {
			violations = append(violations, models.Violation{
				Severity: models.SeverityError,
				Message:  "tests failed" + tail(res.Stdout),
				Rule:     "pytest",
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

func isPythonTest(file string) bool {
	base := path.Base(file)
	return strings.HasPrefix(base, "test_") || strings.HasSuffix(base, "_test.py")
}

func parsePytest(stdout string) []models.Violation {
	var out []models.Violation
	for _, line := range strings.Split(stdout, "\n") {
		m := pytestSummary.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		msg := m[4]
		if msg == "" {
			msg = strings.ToLower(m[1])
		}
		if m[3] != "" {
			msg = m[3] + ": " + msg
		}
		out = append(out, models.Violation{
			File:     m[2],
			Severity: models.SeverityError,
			Message:  msg,
			Rule:     strings.ToLower(m[1]),
		})
	}
	return out
}
