package wrappers

import (
	"context"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/ShayCichocki/qacoord/pkg/models"
)

const defaultMegaLinterReport = "megalinter-reports/mega-linter-report.json"

// MegaLinter runs the MegaLinter aggregate linter in a container and reads
// its JSON report.
type MegaLinter struct {
	*Base
}

// NewMegaLinter creates the megalinter wrapper.
func NewMegaLinter(deps Deps) Wrapper {
	return &MegaLinter{Base: newBase(spec{
		name:        "megalinter",
		binary:      "mega-linter-runner",
		kind:        KindConfigBased,
		dimensions:  []models.Dimension{models.DimensionLint},
		scopes:      []models.Scope{models.ScopeAll, models.ScopeInfrastructure},
		policy:      LintStyle,
		configFiles: []string{".mega-linter.yml", ".mega-linter.yaml"},
	}, deps)}
}

// ExecuteRequest implements ConfigWrapper. Fast mode lints only changed
// files; full mode validates the whole codebase.
func (w *MegaLinter) ExecuteRequest(ctx context.Context, opts Options) *models.ToolResult {
	start := time.Now()
	report := opts.Request.String("report")
	flavor := opts.Request.String("flavor")
	if w.deps.Config != nil {
		if report == "" {
			report = w.deps.Config.GetString(w.configKey("report"), "")
		}
		if flavor == "" {
			flavor = w.deps.Config.GetString(w.configKey("flavor"), "")
		}
	}
	if report == "" {
		report = defaultMegaLinterReport
	}

	validateAll := opts.Mode == models.ModeFull
	args := []string{
		"--path", ".",
		"--env", "JSON_REPORTER=true",
		"--env", fmt.Sprintf("VALIDATE_ALL_CODEBASE=%t", validateAll),
	}
	if flavor != "" {
		args = append(args, "--flavor", flavor)
	}
	cfg := w.findConfig()
	if cfg != "" {
		args = append(args, "--env", "MEGALINTER_CONFIG="+cfg)
	}
	args = append(args, w.extraArgs(opts.Request)...)

	if w.deps.FS == nil {
		return w.build(result{opts: opts, start: start, outcome: Outcome{Fault: "no file system available to read the report"}, exitCode: -1})
	}
	// A report left by an earlier run must not be mistaken for this one.
	if err := w.deps.FS.Remove(report); err != nil {
		return w.build(result{opts: opts, start: start, outcome: Outcome{Fault: "clear previous report: " + err.Error()}, exitCode: -1})
	}

	res := w.run(ctx, args)
	outcome := w.Policy().Classify(res)

	var (
		violations []models.Violation
		warnings   []models.Message
		files      int
	)
	if outcome.Ran {
		data, err := w.deps.FS.ReadFile(report)
		if err != nil {
			w.log.Warn("megalinter report not found", "report", report, "error", err)
			warnings = append(warnings, models.Message{Action: "report", Text: "report not found: " + report})
		} else {
			violations, files = w.parse(string(data))
		}
	}
	return w.build(result{
		opts:           opts,
		start:          start,
		outcome:        outcome,
		exitCode:       res.ExitCode,
		violations:     violations,
		warnings:       warnings,
		filesProcessed: files,
		configFile:     cfg,
	})
}

// parse produces one violation per linter that reported errors or
// warnings.
func (w *MegaLinter) parse(report string) ([]models.Violation, int) {
	if !gjson.Valid(report) {
		w.log.Warn("failed to parse megalinter report")
		return nil, 0
	}

	var (
		out   []models.Violation
		files int
	)
	gjson.Get(report, "linters").ForEach(func(_, l gjson.Result) bool {
		name := l.Get("linter_name").String()
		descriptor := l.Get("descriptor_id").String()
		files += int(firstInt(l, "files_number", "total_number_files"))

		errs := firstInt(l, "total_number_errors", "number_errors")
		warns := firstInt(l, "total_number_warnings", "number_warnings")
		if errs == 0 && l.Get("status").String() == "error" {
			errs = 1
		}
		if errs > 0 {
			out = append(out, models.Violation{
				File:     descriptor,
				Severity: models.SeverityError,
				Message:  fmt.Sprintf("%s reported %d error(s)", name, errs),
				Rule:     name,
			})
		}
		if warns > 0 {
			out = append(out, models.Violation{
				File:     descriptor,
				Severity: models.SeverityWarning,
				Message:  fmt.Sprintf("%s reported %d warning(s)", name, warns),
				Rule:     name,
			})
		}
		return true
	})
	return out, files
}

func firstInt(r gjson.Result, paths ...string) int64 {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() {
			return v.Int()
		}
	}
	return 0
}
