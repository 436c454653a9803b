package wrappers

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	iexec "github.com/ShayCichocki/qacoord/internal/exec"
	"github.com/ShayCichocki/qacoord/internal/files"
	"github.com/ShayCichocki/qacoord/internal/logging"
	"github.com/ShayCichocki/qacoord/pkg/models"
)

// probeTimeout bounds version probes.
const probeTimeout = 15 * time.Second

// spec is the static description of a wrapper.
type spec struct {
	name        string
	binary      string
	versionArgs []string
	kind        Kind
	dimensions  []models.Dimension
	scopes      []models.Scope
	policy      ExitPolicy
	// configFiles are tried in priority order; the first that exists wins.
	configFiles []string
}

// Base implements the cross-cutting parts of the wrapper contract so tool
// wrappers only build arguments and parse output.
type Base struct {
	spec spec
	deps Deps
	log  logging.Logger

	mu      sync.Mutex
	version string
	probed  bool
	avail   bool
}

func newBase(s spec, deps Deps) *Base {
	if deps.Logger == nil {
		deps.Logger = logging.Nop()
	}
	if len(s.versionArgs) == 0 {
		s.versionArgs = []string{"--version"}
	}
	return &Base{spec: s, deps: deps, log: deps.Logger.With("tool", s.name)}
}

// Name returns the wrapper identifier.
func (b *Base) Name() string { return b.spec.name }

// Kind returns the execution shape.
func (b *Base) Kind() Kind { return b.spec.kind }

// Dimensions returns the dimensions the tool may run under.
func (b *Base) Dimensions() []models.Dimension { return b.spec.dimensions }

// Scopes returns the scopes the tool applies to.
func (b *Base) Scopes() []models.Scope { return b.spec.scopes }

// Policy returns the exit-code convention.
func (b *Base) Policy() ExitPolicy { return b.spec.policy }

// Version runs the binary with its version flag and returns the first line.
func (b *Base) Version(ctx context.Context) (string, error) {
	b.mu.Lock()
	if b.version != "" {
		v := b.version
		b.mu.Unlock()
		return v, nil
	}
	b.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	res := b.deps.Runner.Execute(ctx, iexec.ProcessSpec{
		Binary: b.spec.binary,
		Args:   b.spec.versionArgs,
		Dir:    b.deps.Root,
	})
	if !res.Success {
		if res.Err != nil {
			return "", fmt.Errorf("%s version: %w", b.spec.binary, res.Err)
		}
		return "", fmt.Errorf("%s version: exit code %d", b.spec.binary, res.ExitCode)
	}

	v := firstLine(res.Stdout)
	if v == "" {
		v = firstLine(res.Stderr)
	}
	b.mu.Lock()
	b.version = v
	b.mu.Unlock()
	return v, nil
}

// IsAvailable probes the binary once and caches the answer.
func (b *Base) IsAvailable(ctx context.Context) bool {
	b.mu.Lock()
	if b.probed {
		avail := b.avail
		b.mu.Unlock()
		return avail
	}
	b.mu.Unlock()

	avail := true
	if b.deps.Runner.LookPath(b.deps.Root, b.spec.binary) == "" {
		b.log.Warn("binary not found", "binary", b.spec.binary)
		avail = false
	} else if _, err := b.Version(ctx); err != nil {
		b.log.Warn("version probe failed", "binary", b.spec.binary, "error", err)
		avail = false
	}

	b.mu.Lock()
	b.probed, b.avail = true, avail
	b.mu.Unlock()
	return avail
}

// findConfig returns the first existing config candidate, or "" to use the
// tool defaults.
func (b *Base) findConfig(candidates ...string) string {
	if len(candidates) == 0 {
		candidates = b.spec.configFiles
	}
	for _, c := range candidates {
		if b.deps.FS != nil && b.deps.FS.Exists(c) {
			return c
		}
	}
	return ""
}

// configKey returns the wrapper-scoped configuration key.
func (b *Base) configKey(key string) string {
	return "wrappers." + b.spec.name + "." + key
}

// extraArgs returns configured args followed by request args.
func (b *Base) extraArgs(req models.ToolRequest) []string {
	var args []string
	if b.deps.Config != nil {
		args = append(args, b.deps.Config.GetStringSlice(b.configKey("args"), nil)...)
	}
	return append(args, req.StringSlice("args")...)
}

// scopeActions returns the actions configured for a scope. A request may
// override them with config.actions.
func (b *Base) scopeActions(req models.ToolRequest) []string {
	if actions := req.StringSlice("actions"); len(actions) > 0 {
		return actions
	}
	if b.deps.Config == nil {
		return nil
	}
	return b.deps.Config.GetStringSlice(b.configKey("scopes."+string(req.Scope)), nil)
}

// run executes the tool binary in the repository root.
func (b *Base) run(ctx context.Context, args []string) *iexec.ProcessResult {
	return b.runBinary(ctx, b.spec.binary, args)
}

func (b *Base) runBinary(ctx context.Context, binary string, args []string, env ...string) *iexec.ProcessResult {
	b.log.Debug("executing", "binary", binary, "args", args)
	res := b.deps.Runner.Execute(ctx, iexec.ProcessSpec{Binary: binary, Args: args, Dir: b.deps.Root, Env: env})
	b.log.Debug("process finished", "binary", binary, "exit_code", res.ExitCode, "duration", res.Duration)
	return res
}

// result is the input to the common result-formatting helper.
type result struct {
	opts           Options
	start          time.Time
	outcome        Outcome
	exitCode       int
	violations     []models.Violation
	filesProcessed int
	configFile     string
	actions        []string
	warnings       []models.Message
	errors         []models.Message
	// violationActions tags each violation with its sub-action when the
	// result merges several actions.
	violationActions []string
	// faultsTagged is set when errors already carries per-action faults.
	faultsTagged bool
}

func (r result) actionFor(i int) string {
	if i < len(r.violationActions) {
		return r.violationActions[i]
	}
	return actionOf(r.actions)
}

// build turns a result into a timestamped ToolResult. Success requires the
// tool to have run under its exit policy and no error-severity violation.
func (b *Base) build(r result) *models.ToolResult {
	if r.violations == nil {
		r.violations = []models.Violation{}
	}
	tr := &models.ToolResult{
		Tool:          b.spec.name,
		Dimension:     r.opts.Request.Dimension,
		Scope:         r.opts.Request.Scope,
		ExecutionTime: models.Millis(time.Since(r.start)),
		Violations:    r.violations,
		Warnings:      r.warnings,
		Errors:        r.errors,
		Metadata: models.ResultMetadata{
			FilesProcessed: r.filesProcessed,
			ExitCode:       r.exitCode,
			ConfigFile:     r.configFile,
			Actions:        r.actions,
			TimedOut:       r.outcome.TimedOut,
			Cancelled:      r.outcome.Cancelled,
		},
		Timestamp: time.Now(),
	}
	if !r.outcome.Ran {
		tr.Error = r.outcome.Fault
	}

	tr.Success = r.outcome.Ran
	for i, v := range r.violations {
		msg := models.Message{Action: r.actionFor(i), Text: formatViolation(v)}
		if v.Severity == models.SeverityError {
			tr.Success = false
			tr.Errors = append(tr.Errors, msg)
		} else {
			tr.Warnings = append(tr.Warnings, msg)
		}
	}
	if tr.Error != "" && !r.faultsTagged {
		tr.Errors = append(tr.Errors, models.Message{Action: actionOf(r.actions), Text: tr.Error})
	}

	tr.Status = tr.DeriveStatus()
	b.log.Info("tool finished",
		"success", tr.Success,
		"status", tr.Status,
		"violations", len(tr.Violations),
		"files", tr.Metadata.FilesProcessed,
		"duration", tr.ExecutionTime)
	return tr
}

// actionRun is the outcome of one sub-action of a config-based wrapper.
type actionRun struct {
	action     string
	outcome    Outcome
	exitCode   int
	violations []models.Violation
}

// merge folds sub-action runs into one result. Any faulted action makes
// the whole result unsuccessful; violations from the actions that ran are
// kept.
func (b *Base) merge(opts Options, start time.Time, runs []actionRun, filesProcessed int, cfg string) *models.ToolResult {
	r := result{
		opts:           opts,
		start:          start,
		outcome:        Outcome{Ran: true},
		filesProcessed: filesProcessed,
		configFile:     cfg,
		faultsTagged:   true,
	}
	var faults []string
	for _, run := range runs {
		r.actions = append(r.actions, run.action)
		if run.exitCode != 0 {
			r.exitCode = run.exitCode
		}
		r.outcome.TimedOut = r.outcome.TimedOut || run.outcome.TimedOut
		r.outcome.Cancelled = r.outcome.Cancelled || run.outcome.Cancelled
		if !run.outcome.Ran {
			r.outcome.Ran = false
			faults = append(faults, run.action+": "+run.outcome.Fault)
			r.errors = append(r.errors, models.Message{Action: run.action, Text: run.outcome.Fault})
		}
		for _, v := range run.violations {
			r.violations = append(r.violations, v)
			r.violationActions = append(r.violationActions, run.action)
		}
	}
	r.outcome.Fault = strings.Join(faults, "; ")
	return b.build(r)
}

// failure converts an error raised before or during execution into a failed
// result with zero violations.
func (b *Base) failure(opts Options, start time.Time, err error) *models.ToolResult {
	outcome := Outcome{Fault: err.Error()}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		outcome.TimedOut = true
	case errors.Is(err, context.Canceled):
		outcome.Cancelled = true
	}
	b.log.Error("tool execution failed", "error", err)
	return b.build(result{opts: opts, start: start, outcome: outcome})
}

// empty is the successful no-op returned when nothing applies.
func (b *Base) empty(opts Options, start time.Time, reason string) *models.ToolResult {
	b.log.Debug("nothing to do", "reason", reason)
	return b.build(result{opts: opts, start: start, outcome: Outcome{Ran: true}})
}

// scopePaths returns the configured path prefixes of scope that exist under
// the root, or "." when none do.
func (b *Base) scopePaths(scope models.Scope) []string {
	var out []string
	if b.deps.Config != nil && scope != "" {
		for _, p := range b.deps.Config.GetStringSlice("scopes."+string(scope)+".paths", nil) {
			if b.deps.FS != nil && b.deps.FS.Exists(p) {
				out = append(out, p)
			}
		}
	}
	if len(out) == 0 {
		return []string{"."}
	}
	return out
}

// selectFiles applies the wrapper extension filter.
func selectFiles(all []string, exts []string) []string {
	return files.FilterByExt(all, exts...)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func actionOf(actions []string) string {
	if len(actions) == 1 {
		return actions[0]
	}
	return ""
}

func formatViolation(v models.Violation) string {
	loc := v.File
	if v.Line > 0 {
		loc = fmt.Sprintf("%s:%d:%d", v.File, v.Line, v.Column)
	}
	msg := v.Message
	if v.Rule != "" {
		msg = fmt.Sprintf("%s (%s)", msg, v.Rule)
	}
	if loc == "" {
		return msg
	}
	return loc + " " + msg
}

// relPath normalizes a tool-reported path to slash form relative to root.
func relPath(root, p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	root = strings.TrimSuffix(strings.ReplaceAll(root, "\\", "/"), "/")
	if root != "" && strings.HasPrefix(p, root+"/") {
		p = strings.TrimPrefix(p, root+"/")
	}
	return path.Clean(p)
}
