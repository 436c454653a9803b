package wrappers

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/ShayCichocki/qacoord/internal/config"
	"github.com/ShayCichocki/qacoord/internal/exec/exectest"
	"github.com/ShayCichocki/qacoord/internal/logging"
	"github.com/ShayCichocki/qacoord/pkg/models"
)

func testDeps(runner *exectest.Runner, fs *exectest.FS) Deps {
	if fs == nil {
		fs = exectest.NewFS(nil)
	}
	return Deps{
		Config: config.Default().Accessor(),
		Logger: logging.Nop(),
		Runner: runner,
		FS:     fs,
		Root:   "/repo",
	}
}

func lintOpts(name string, dim models.Dimension, scope models.Scope) Options {
	return Options{
		Request: models.ToolRequest{Name: name, Dimension: dim, Scope: scope},
		Mode:    models.ModeFast,
	}
}

func callLine(r *exectest.Runner, binary string) string {
	calls := r.CallsTo(binary)
	if len(calls) == 0 {
		return ""
	}
	return strings.Join(calls[len(calls)-1].Args, " ")
}

const eslintOutput = `[
  {"filePath": "/repo/src/app.ts", "messages": [
    {"ruleId": "complexity", "severity": 2, "message": "Function 'render' has a complexity of 14. Maximum allowed is 10.", "line": 3, "column": 1},
    {"ruleId": "max-len", "severity": 1, "message": "This line has a length of 120. Maximum allowed is 100.", "line": 9, "column": 1}
  ]},
  {"filePath": "/repo/src/util.ts", "messages": []}
]`

func TestESLintParsesViolationsAndMetrics(t *testing.T) {
	runner := exectest.NewRunner().On("eslint --format json", exectest.Response{ExitCode: 1, Stdout: eslintOutput})
	w := NewESLint(testDeps(runner, nil)).(FileWrapper)

	res := w.ExecuteFiles(context.Background(), []string{"src/app.ts", "src/util.ts", "backend/main.py"}, lintOpts("eslint", models.DimensionLint, models.ScopeFrontend))

	if res.Success {
		t.Error("expected failure with an error-severity violation")
	}
	if res.Status != models.StatusFailed {
		t.Errorf("Status = %s, want failed", res.Status)
	}
	if res.Metadata.FilesProcessed != 2 {
		t.Errorf("FilesProcessed = %d, want 2", res.Metadata.FilesProcessed)
	}
	if len(res.Violations) != 2 {
		t.Fatalf("got %d violations, want 2", len(res.Violations))
	}

	v := res.Violations[0]
	if v.File != "src/app.ts" || v.Line != 3 || v.Severity != models.SeverityError {
		t.Errorf("unexpected first violation: %+v", v)
	}
	if v.DesignMetrics == nil || v.DesignMetrics.Value != 14 || v.DesignMetrics.Classification != models.ClassificationYellow {
		t.Errorf("complexity metrics = %+v, want 14 yellow", v.DesignMetrics)
	}
	if m := res.Violations[1].DesignMetrics; m == nil || m.Classification != models.ClassificationRed {
		t.Errorf("line length metrics = %+v, want red", m)
	}

	line := callLine(runner, "eslint")
	if strings.Contains(line, "main.py") {
		t.Errorf("python file passed to eslint: %s", line)
	}
	if len(res.Errors) != 1 || len(res.Warnings) != 1 {
		t.Errorf("messages: %d errors, %d warnings; want 1 and 1", len(res.Errors), len(res.Warnings))
	}
}

func TestFileWrapperWithNoMatchingFilesIsNoop(t *testing.T) {
	runner := exectest.NewRunner()
	deps := testDeps(runner, nil)

	tests := []struct {
		name  string
		w     FileWrapper
		files []string
	}{
		{"eslint", NewESLint(deps).(FileWrapper), []string{"main.py"}},
		{"ruff", NewRuff(deps).(FileWrapper), []string{"app.ts"}},
		{"black", NewBlack(deps).(FileWrapper), nil},
		{"prettier", NewPrettier(deps).(FileWrapper), []string{"main.go"}},
		{"pytest", NewPytest(deps).(FileWrapper), []string{"app/models.py"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.w.ExecuteFiles(context.Background(), tt.files, lintOpts(tt.name, models.DimensionLint, models.ScopeAll))
			if !res.Success || res.Status != models.StatusPassed {
				t.Errorf("got success=%v status=%s, want passed no-op", res.Success, res.Status)
			}
			if len(res.Violations) != 0 {
				t.Errorf("got %d violations, want 0", len(res.Violations))
			}
		})
	}
	if calls := runner.Calls(); len(calls) != 0 {
		t.Errorf("expected no process calls, got %d", len(calls))
	}
}

func TestExitPolicyFaults(t *testing.T) {
	tests := []struct {
		name       string
		resp       exectest.Response
		wantStatus models.Status
		wantErr    string
	}{
		{"crash exit code", exectest.Response{ExitCode: 2, Stderr: "Oops! Something went wrong!"}, models.StatusError, "exited with code 2: Oops! Something went wrong!"},
		{"spawn failure", exectest.Response{Err: errString("permission denied")}, models.StatusError, "permission denied"},
		{"garbage output", exectest.Response{ExitCode: 0, Stdout: "not json"}, models.StatusPassed, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := exectest.NewRunner().On("eslint --format", tt.resp)
			w := NewESLint(testDeps(runner, nil)).(FileWrapper)
			res := w.ExecuteFiles(context.Background(), []string{"a.js"}, lintOpts("eslint", models.DimensionLint, models.ScopeFrontend))

			if res.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", res.Status, tt.wantStatus)
			}
			if res.Error != tt.wantErr {
				t.Errorf("Error = %q, want %q", res.Error, tt.wantErr)
			}
			if len(res.Violations) != 0 {
				t.Errorf("got %d violations, want 0", len(res.Violations))
			}
		})
	}
}

type errString string

func (e errString) Error() string { return string(e) }

func TestWrapperTimeout(t *testing.T) {
	runner := exectest.NewRunner().On("ruff check", exectest.Response{Delay: time.Minute})
	w := NewRuff(testDeps(runner, nil)).(FileWrapper)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res := w.ExecuteFiles(ctx, []string{"a.py"}, lintOpts("ruff", models.DimensionLint, models.ScopeBackend))

	if res.Success {
		t.Error("timed out run reported success")
	}
	if !res.Metadata.TimedOut {
		t.Error("TimedOut metadata not set")
	}
	if !strings.HasPrefix(res.Error, "timed out after") {
		t.Errorf("Error = %q, want timed out", res.Error)
	}
}

func TestRuffSeverityAndLinesOfCode(t *testing.T) {
	big := strings.Repeat("x = 1\n", 250)
	fs := exectest.NewFS(map[string]string{
		"app/big.py":   big,
		"app/small.py": "x = 1\n",
	})
	stdout := `[
	  {"code": "C901", "message": "` + "`handler`" + ` is too complex (12 > 10)", "filename": "/repo/app/small.py", "location": {"row": 1, "column": 5}},
	  {"code": "C901", "message": "` + "`main`" + ` is too complex (20 > 10)", "filename": "/repo/app/small.py", "location": {"row": 9, "column": 5}}
	]`
	runner := exectest.NewRunner().On("ruff check", exectest.Response{ExitCode: 1, Stdout: stdout})
	w := NewRuff(testDeps(runner, fs)).(FileWrapper)

	res := w.ExecuteFiles(context.Background(), []string{"app/big.py", "app/small.py"}, lintOpts("ruff", models.DimensionLint, models.ScopeBackend))

	if len(res.Violations) != 3 {
		t.Fatalf("got %d violations, want 3: %+v", len(res.Violations), res.Violations)
	}
	if res.Violations[0].Severity != models.SeverityWarning {
		t.Errorf("yellow complexity severity = %s, want warning", res.Violations[0].Severity)
	}
	if res.Violations[1].Severity != models.SeverityError {
		t.Errorf("red complexity severity = %s, want error", res.Violations[1].Severity)
	}
	loc := res.Violations[2]
	if loc.Rule != "max-lines" || loc.File != "app/big.py" || loc.Severity != models.SeverityWarning {
		t.Errorf("unexpected LOC violation: %+v", loc)
	}
	if loc.DesignMetrics == nil || loc.DesignMetrics.Value != 250 {
		t.Errorf("LOC metrics = %+v, want 250", loc.DesignMetrics)
	}
	if res.Success {
		t.Error("red complexity must fail the result")
	}
}

func TestRuffOnlyWarningsPasses(t *testing.T) {
	fs := exectest.NewFS(map[string]string{"app/big.py": strings.Repeat("y = 2\n", 230)})
	runner := exectest.NewRunner().On("ruff check", exectest.Response{Stdout: "[]"})
	w := NewRuff(testDeps(runner, fs)).(FileWrapper)

	res := w.ExecuteFiles(context.Background(), []string{"app/big.py"}, lintOpts("ruff", models.DimensionLint, models.ScopeBackend))
	if !res.Success || res.Status != models.StatusWarning {
		t.Errorf("got success=%v status=%s, want success with warning", res.Success, res.Status)
	}
}

func TestBlackParsesStderr(t *testing.T) {
	stderr := "would reformat /repo/app/a.py\nwould reformat /repo/app/b.py\n\nOh no! 2 files would be reformatted.\n"
	runner := exectest.NewRunner().On("black --check", exectest.Response{ExitCode: 1, Stderr: stderr})
	w := NewBlack(testDeps(runner, nil)).(FileWrapper)

	res := w.ExecuteFiles(context.Background(), []string{"app/a.py", "app/b.py", "app/c.py"}, lintOpts("black", models.DimensionFormat, models.ScopeBackend))
	if len(res.Violations) != 2 {
		t.Fatalf("got %d violations, want 2", len(res.Violations))
	}
	if res.Violations[1].File != "app/b.py" {
		t.Errorf("File = %q, want app/b.py", res.Violations[1].File)
	}
	if res.Success {
		t.Error("unformatted files must fail the check")
	}
}

func TestPrettierListDifferent(t *testing.T) {
	runner := exectest.NewRunner().On("prettier --list-different", exectest.Response{ExitCode: 1, Stdout: "src/a.ts\n"})
	fs := exectest.NewFS(map[string]string{".prettierrc": "{}"})
	w := NewPrettier(testDeps(runner, fs)).(FileWrapper)

	res := w.ExecuteFiles(context.Background(), []string{"src/a.ts", "src/b.css"}, lintOpts("prettier", models.DimensionFormat, models.ScopeFrontend))
	if len(res.Violations) != 1 || res.Violations[0].File != "src/a.ts" {
		t.Errorf("unexpected violations: %+v", res.Violations)
	}
	if res.Metadata.ConfigFile != ".prettierrc" {
		t.Errorf("ConfigFile = %q, want .prettierrc", res.Metadata.ConfigFile)
	}
	if !strings.Contains(callLine(runner, "prettier"), "--config .prettierrc") {
		t.Errorf("config not passed: %s", callLine(runner, "prettier"))
	}
}

func TestPytest(t *testing.T) {
	files := []string{"app/models.py", "tests/test_api.py", "tests/conftest.py"}

	t.Run("failures", func(t *testing.T) {
		stdout := "F.\n=== short test summary info ===\nPASSED tests/test_api.py::test_ok\nFAILED tests/test_api.py::test_get - AssertionError: boom\n1 failed, 1 passed in 0.02s\n"
		runner := exectest.NewRunner().On("pytest", exectest.Response{ExitCode: 1, Stdout: stdout})
		w := NewPytest(testDeps(runner, nil)).(FileWrapper)

		res := w.ExecuteFiles(context.Background(), files, lintOpts("pytest", models.DimensionTest, models.ScopeBackend))
		if res.Success || res.Status != models.StatusFailed {
			t.Errorf("got success=%v status=%s, want failed", res.Success, res.Status)
		}
		if len(res.Violations) != 1 {
			t.Fatalf("got %d violations, want 1", len(res.Violations))
		}
		if got := res.Violations[0].Message; got != "test_get: AssertionError: boom" {
			t.Errorf("Message = %q", got)
		}
		line := callLine(runner, "pytest")
		if !strings.Contains(line, "-x") || strings.Contains(line, "models.py") {
			t.Errorf("unexpected args: %s", line)
		}
	})

	t.Run("nothing collected", func(t *testing.T) {
		runner := exectest.NewRunner().On("pytest", exectest.Response{ExitCode: 5})
		w := NewPytest(testDeps(runner, nil)).(FileWrapper)
		res := w.ExecuteFiles(context.Background(), files, lintOpts("pytest", models.DimensionTest, models.ScopeBackend))
		if !res.Success {
			t.Errorf("exit 5 should not fail: %+v", res)
		}
	})

	t.Run("full mode runs everything", func(t *testing.T) {
		runner := exectest.NewRunner()
		w := NewPytest(testDeps(runner, nil)).(FileWrapper)
		opts := lintOpts("pytest", models.DimensionTest, models.ScopeBackend)
		opts.Mode = models.ModeFull
		w.ExecuteFiles(context.Background(), files, opts)
		if strings.Contains(callLine(runner, "pytest"), "-x") {
			t.Error("full mode must not stop at first failure")
		}
	})

	t.Run("max_fail replaces stop at first failure", func(t *testing.T) {
		runner := exectest.NewRunner()
		w := NewPytest(testDeps(runner, nil)).(FileWrapper)
		opts := lintOpts("pytest", models.DimensionTest, models.ScopeBackend)
		opts.Request.Config = map[string]any{"max_fail": 3}
		w.ExecuteFiles(context.Background(), files, opts)
		line := callLine(runner, "pytest")
		if !strings.Contains(line, "--maxfail=3") || strings.Contains(line, "-x") {
			t.Errorf("unexpected args: %s", line)
		}
	})
}

func TestSemgrepRulesetsPerScope(t *testing.T) {
	stdout := `{"results": [
	  {"check_id": "python.lang.security.eval", "path": "backend/app.py", "start": {"line": 4, "col": 2}, "extra": {"message": "eval detected", "severity": "ERROR"}},
	  {"check_id": "python.lang.best-practice.open", "path": "backend/io.py", "start": {"line": 1, "col": 1}, "extra": {"message": "open without encoding", "severity": "WARNING"}}
	], "errors": [{"message": "Syntax error in backend/broken.py", "level": "warn"}], "paths": {"scanned": ["backend/app.py", "backend/io.py"]}}`
	runner := exectest.NewRunner().On("semgrep scan", exectest.Response{ExitCode: 1, Stdout: stdout})
	fs := exectest.NewFS(map[string]string{"backend/app.py": ""})
	w := NewSemgrep(testDeps(runner, fs)).(ConfigWrapper)

	res := w.ExecuteRequest(context.Background(), lintOpts("semgrep", models.DimensionSecurity, models.ScopeBackend))

	line := callLine(runner, "semgrep")
	if !strings.Contains(line, "--config p/python") {
		t.Errorf("backend ruleset missing: %s", line)
	}
	if !strings.HasSuffix(line, " backend") {
		t.Errorf("scan path not limited to scope: %s", line)
	}
	if len(res.Violations) != 2 || res.Violations[0].Severity != models.SeverityError || res.Violations[1].Severity != models.SeverityWarning {
		t.Errorf("unexpected violations: %+v", res.Violations)
	}
	if res.Metadata.FilesProcessed != 2 {
		t.Errorf("FilesProcessed = %d, want 2", res.Metadata.FilesProcessed)
	}
	if res.Status != models.StatusFailed {
		t.Errorf("Status = %s, want failed", res.Status)
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w.Text, "Syntax error") {
			found = true
		}
	}
	if !found {
		t.Errorf("scanner error not reported as warning: %+v", res.Warnings)
	}
}

func TestSnykMergesActions(t *testing.T) {
	deps := `{"displayTargetFile": "package-lock.json", "vulnerabilities": [
	  {"id": "SNYK-JS-LODASH-1", "title": "Prototype Pollution", "severity": "high", "packageName": "lodash", "version": "4.17.15"},
	  {"id": "SNYK-JS-LODASH-1", "title": "Prototype Pollution", "severity": "high", "packageName": "lodash", "version": "4.17.15"}
	]}`
	sarif := `{"runs": [{"results": [
	  {"ruleId": "javascript/NoHardcodedPasswords", "level": "warning", "message": {"text": "Hardcoded password"},
	   "locations": [{"physicalLocation": {"artifactLocation": {"uri": "src/db.js"}, "region": {"startLine": 7, "startColumn": 3}}}]}
	]}]}`
	runner := exectest.NewRunner().
		On("snyk test", exectest.Response{ExitCode: 1, Stdout: deps}).
		On("snyk code test", exectest.Response{ExitCode: 1, Stdout: sarif})
	w := NewSnyk(testDeps(runner, nil)).(ConfigWrapper)

	res := w.ExecuteRequest(context.Background(), lintOpts("snyk", models.DimensionSecurity, models.ScopeFrontend))

	if len(res.Violations) != 2 {
		t.Fatalf("got %d violations, want 2 (duplicates collapsed): %+v", len(res.Violations), res.Violations)
	}
	if res.Violations[0].Severity != models.SeverityError || res.Violations[1].File != "src/db.js" {
		t.Errorf("unexpected violations: %+v", res.Violations)
	}
	if len(res.Errors) != 1 || res.Errors[0].Action != "test" {
		t.Errorf("errors not tagged with action: %+v", res.Errors)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Action != "code" {
		t.Errorf("warnings not tagged with action: %+v", res.Warnings)
	}
	if got := res.Metadata.Actions; len(got) != 2 {
		t.Errorf("Actions = %v", got)
	}
	if !strings.Contains(callLine(runner, "snyk"), "--severity-threshold=high") {
		t.Errorf("threshold missing: %s", callLine(runner, "snyk"))
	}
}

func TestSnykFaultedActionKeepsOtherFindings(t *testing.T) {
	runner := exectest.NewRunner().
		On("snyk test", exectest.Response{ExitCode: 0, Stdout: `{"vulnerabilities": []}`}).
		On("snyk code test", exectest.Response{ExitCode: 2, Stderr: "Authentication failed"})
	w := NewSnyk(testDeps(runner, nil)).(ConfigWrapper)

	res := w.ExecuteRequest(context.Background(), lintOpts("snyk", models.DimensionSecurity, models.ScopeBackend))
	if res.Success {
		t.Error("faulted action must fail the result")
	}
	if res.Status != models.StatusError {
		t.Errorf("Status = %s, want error", res.Status)
	}
	if !strings.HasPrefix(res.Error, "code: exited with code 2") {
		t.Errorf("Error = %q", res.Error)
	}
	if len(res.Errors) != 1 || res.Errors[0].Action != "code" {
		t.Errorf("Errors = %+v", res.Errors)
	}
}

func TestSpectral(t *testing.T) {
	stdout := `[
	  {"code": "operation-operationId", "message": "Operation must have operationId", "path": ["paths", "/users", "get"], "severity": 0, "source": "/repo/openapi.yaml", "range": {"start": {"line": 11, "character": 4}}},
	  {"code": "info-contact", "message": "Info object must have contact", "path": ["info"], "severity": 1, "source": "/repo/openapi.yaml", "range": {"start": {"line": 1, "character": 0}}},
	  {"code": "hint-rule", "message": "hint", "path": [], "severity": 3, "source": "/repo/openapi.yaml", "range": {"start": {"line": 1, "character": 0}}}
	]`

	t.Run("lints existing documents", func(t *testing.T) {
		runner := exectest.NewRunner().On("spectral lint", exectest.Response{ExitCode: 1, Stdout: stdout})
		fs := exectest.NewFS(map[string]string{"openapi.yaml": "openapi: 3.0.0"})
		w := NewSpectral(testDeps(runner, fs)).(ConfigWrapper)

		res := w.ExecuteRequest(context.Background(), lintOpts("spectral", models.DimensionLint, models.ScopeAPI))
		if len(res.Violations) != 2 {
			t.Fatalf("got %d violations, want 2", len(res.Violations))
		}
		v := res.Violations[0]
		if v.File != "openapi.yaml" || v.Line != 12 || v.Column != 5 {
			t.Errorf("unexpected position: %+v", v)
		}
		if !strings.HasSuffix(callLine(runner, "spectral"), "openapi.yaml") {
			t.Errorf("document not passed: %s", callLine(runner, "spectral"))
		}
	})

	t.Run("no documents", func(t *testing.T) {
		runner := exectest.NewRunner()
		w := NewSpectral(testDeps(runner, nil)).(ConfigWrapper)
		res := w.ExecuteRequest(context.Background(), lintOpts("spectral", models.DimensionLint, models.ScopeAPI))
		if !res.Success || len(runner.Calls()) != 0 {
			t.Errorf("expected no-op success, got %+v", res)
		}
	})
}

func TestMegaLinterReadsReport(t *testing.T) {
	report := `{"linters": [
	  {"descriptor_id": "PYTHON", "linter_name": "pylint", "status": "error", "total_number_errors": 3, "total_number_warnings": 0, "files_number": 4},
	  {"descriptor_id": "YAML", "linter_name": "yamllint", "status": "warning", "total_number_errors": 0, "total_number_warnings": 2, "files_number": 1},
	  {"descriptor_id": "JSON", "linter_name": "jsonlint", "status": "success", "total_number_errors": 0, "files_number": 5}
	]}`
	fs := exectest.NewFS(map[string]string{".mega-linter.yml": "APPLY_FIXES: none\n"})
	runner := exectest.NewRunner().On("mega-linter-runner", exectest.Response{
		ExitCode: 1,
		Effect:   func() { fs.Put(defaultMegaLinterReport, report) },
	})
	w := NewMegaLinter(testDeps(runner, fs)).(ConfigWrapper)

	res := w.ExecuteRequest(context.Background(), lintOpts("megalinter", models.DimensionLint, models.ScopeAll))
	if len(res.Violations) != 2 {
		t.Fatalf("got %d violations, want 2", len(res.Violations))
	}
	if res.Metadata.FilesProcessed != 10 {
		t.Errorf("FilesProcessed = %d, want 10", res.Metadata.FilesProcessed)
	}
	if !strings.Contains(callLine(runner, "mega-linter-runner"), "VALIDATE_ALL_CODEBASE=false") {
		t.Errorf("fast mode should lint changed files only: %s", callLine(runner, "mega-linter-runner"))
	}
	if res.Status != models.StatusFailed {
		t.Errorf("Status = %s, want failed", res.Status)
	}
	if !strings.Contains(callLine(runner, "mega-linter-runner"), "MEGALINTER_CONFIG=.mega-linter.yml") {
		t.Errorf("config file not passed: %s", callLine(runner, "mega-linter-runner"))
	}
}

func TestMegaLinterIgnoresStaleReport(t *testing.T) {
	stale := `{"linters": [{"descriptor_id": "PYTHON", "linter_name": "pylint", "status": "error", "total_number_errors": 9}]}`
	fs := exectest.NewFS(map[string]string{defaultMegaLinterReport: stale})
	runner := exectest.NewRunner().On("mega-linter-runner", exectest.Response{ExitCode: 0})
	w := NewMegaLinter(testDeps(runner, fs)).(ConfigWrapper)

	res := w.ExecuteRequest(context.Background(), lintOpts("megalinter", models.DimensionLint, models.ScopeAll))
	if len(res.Violations) != 0 {
		t.Errorf("violations from a previous run's report: %+v", res.Violations)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0].Text, "report not found") {
		t.Errorf("Warnings = %+v, want a missing report warning", res.Warnings)
	}
	if fs.Exists(defaultMegaLinterReport) {
		t.Error("stale report should be removed before the run")
	}
}

func TestMegaLinterWithoutFileSystem(t *testing.T) {
	runner := exectest.NewRunner()
	deps := testDeps(runner, nil)
	deps.FS = nil
	w := NewMegaLinter(deps).(ConfigWrapper)

	res := w.ExecuteRequest(context.Background(), lintOpts("megalinter", models.DimensionLint, models.ScopeAll))
	if res.Success || res.Error == "" {
		t.Errorf("got success=%v error=%q, want a fault", res.Success, res.Error)
	}
	if len(runner.CallsTo("mega-linter-runner")) != 0 {
		t.Error("megalinter ran without a way to read its report")
	}
}

func TestBuildStopsAtFirstFailure(t *testing.T) {
	runner := exectest.NewRunner().
		On("npm run build", exectest.Response{ExitCode: 1, Stderr: "error TS2304: Cannot find name 'foo'."}).
		On("python -m compileall", exectest.Response{})
	w := NewBuild(testDeps(runner, nil)).(ConfigWrapper)

	res := w.ExecuteRequest(context.Background(), lintOpts("build", models.DimensionBuild, models.ScopeAll))
	if res.Success {
		t.Error("failing build reported success")
	}
	if !strings.Contains(res.Error, "Cannot find name") {
		t.Errorf("Error = %q, want stderr tail", res.Error)
	}
	if n := len(runner.CallsTo("python")); n != 0 {
		t.Errorf("later commands ran %d times after a failure", n)
	}
	if !w.IsAvailable(context.Background()) {
		t.Error("build is always available")
	}
}

func TestDataChecks(t *testing.T) {
	npmOut := `{"problems": ["missing: left-pad@^1.3.0, required by app@1.0.0"]}`
	runner := exectest.NewRunner().
		On("npm ls", exectest.Response{ExitCode: 1, Stdout: npmOut}).
		On("pip check", exectest.Response{Stdout: "No broken requirements found.\n"})

	t.Run("manifest present", func(t *testing.T) {
		fs := exectest.NewFS(map[string]string{"package.json": "{}"})
		w := NewData(testDeps(runner, fs)).(ConfigWrapper)
		res := w.ExecuteRequest(context.Background(), lintOpts("data", models.DimensionData, models.ScopeAll))
		if len(res.Violations) != 1 || res.Violations[0].Rule != "npm-ls" {
			t.Errorf("unexpected violations: %+v", res.Violations)
		}
		if res.Success {
			t.Error("broken dependency tree must fail")
		}
	})

	t.Run("manifest absent", func(t *testing.T) {
		w := NewData(testDeps(exectest.NewRunner(), nil)).(ConfigWrapper)
		res := w.ExecuteRequest(context.Background(), lintOpts("data", models.DimensionData, models.ScopeFrontend))
		if !res.Success || len(res.Violations) != 0 {
			t.Errorf("expected no-op success, got %+v", res)
		}
	})
}

func TestAvailabilityIsProbedOnce(t *testing.T) {
	runner := exectest.NewRunner().On("ruff --version", exectest.Response{Stdout: "ruff 0.4.2\n"})
	w := NewRuff(testDeps(runner, nil))

	for range 3 {
		if !w.IsAvailable(context.Background()) {
			t.Fatal("ruff should be available")
		}
	}
	if n := len(runner.CallsTo("ruff")); n != 1 {
		t.Errorf("version probed %d times, want 1", n)
	}
	v, err := w.Version(context.Background())
	if err != nil || v != "ruff 0.4.2" {
		t.Errorf("Version() = %q, %v", v, err)
	}
}

func TestMissingBinaryIsUnavailable(t *testing.T) {
	runner := exectest.NewRunner().Missing("semgrep")
	w := NewSemgrep(testDeps(runner, nil))
	if w.IsAvailable(context.Background()) {
		t.Error("missing binary reported available")
	}
	if len(runner.Calls()) != 0 {
		t.Error("missing binary should not be executed")
	}
}

func TestDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()
	if got := len(reg.Names()); got != 11 {
		t.Fatalf("registry has %d wrappers, want 11", got)
	}

	deps := testDeps(exectest.NewRunner(), nil)
	for _, name := range reg.Names() {
		w := reg[name](deps)
		if w.Name() != name {
			t.Errorf("factory %q built wrapper named %q", name, w.Name())
		}
		switch w.Kind() {
		case KindFileBased:
			if _, ok := w.(FileWrapper); !ok {
				t.Errorf("%s claims file kind without ExecuteFiles", name)
			}
		case KindConfigBased:
			if _, ok := w.(ConfigWrapper); !ok {
				t.Errorf("%s claims config kind without ExecuteRequest", name)
			}
		}
		if len(w.Dimensions()) == 0 {
			t.Errorf("%s declares no dimensions", name)
		}
	}
}

func TestTailTruncatesOnRuneBoundary(t *testing.T) {
	line := strings.Repeat("é", 150) + strings.Repeat("ü", 150)
	got := tail("first line\n" + line + "\n\n")
	if !utf8.ValidString(got) {
		t.Fatalf("tail produced invalid UTF-8: %q", got)
	}
	want := ": " + strings.Repeat("é", 150) + strings.Repeat("ü", 50) + "..."
	if got != want {
		t.Errorf("tail() = %q, want %q", got, want)
	}
	if tail("short") != ": short" || tail("  \n ") != "" {
		t.Errorf("tail short/blank = %q / %q", tail("short"), tail("  \n "))
	}
}
