package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ShayCichocki/qacoord/internal/config"
	"github.com/ShayCichocki/qacoord/internal/logging"
	"github.com/ShayCichocki/qacoord/internal/wrappers"
	"github.com/ShayCichocki/qacoord/pkg/models"
)

// DefaultToolTimeout applies when neither the request nor configuration
// sets a timeout.
const DefaultToolTimeout = 5 * time.Minute

// FileSource returns the files a file-based tool should check for a scope.
type FileSource func(scope models.Scope) []string

// ControllerConfig holds the execution settings of a Controller.
type ControllerConfig struct {
	// DefaultTimeout bounds every tool invocation without its own timeout.
	DefaultTimeout time.Duration
	// MaxParallel limits concurrent tools in a parallel group; 0 is unlimited.
	MaxParallel int
	// StopOnCritical skips the remaining groups after a critical failure.
	StopOnCritical bool
}

// Execution is what a Controller run produced.
type Execution struct {
	// Results holds one result per request, in group and plan order.
	Results []models.ToolResult
	// GroupsRun counts the groups that started.
	GroupsRun int
	// Stopped is set when stop-on-critical skipped later groups.
	Stopped bool
	// Cancelled is set when the context ended before every group finished.
	Cancelled bool
}

// Controller runs execution groups: tools of a parallel group concurrently,
// groups strictly one after another.
type Controller struct {
	manager *WrapperManager
	cfg     ControllerConfig
	tools   config.Accessor
	log     logging.Logger
	events  *EventEmitter
}

// NewController creates a Controller. tools supplies per-tool settings
// such as wrappers.<name>.timeout and may be nil.
func NewController(manager *WrapperManager, cfg ControllerConfig, tools config.Accessor, log logging.Logger, events *EventEmitter) *Controller {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultToolTimeout
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Controller{manager: manager, cfg: cfg, tools: tools, log: log, events: events}
}

// Execute runs groups in order. It always returns the results collected so
// far; a cancelled context stops launching new tools and kills running ones.
func (c *Controller) Execute(ctx context.Context, runID string, plan *models.ExecutionPlan, groups []ExecutionGroup, files FileSource) *Execution {
	exec := &Execution{}
	if len(groups) == 0 {
		c.log.Warn("no execution groups, nothing to run", "run_id", runID)
		return exec
	}

	for gi, group := range groups {
		if ctx.Err() != nil {
			exec.Cancelled = true
			exec.Results = append(exec.Results, c.skipAll(runID, groups[gi:], "run cancelled")...)
			break
		}

		exec.GroupsRun++
		c.events.Emit(Event{Type: EventGroupStarted, RunID: runID, Group: gi, Groups: len(groups), Dimension: group.Dimension})
		c.log.Info("group started",
			"run_id", runID,
			"group", gi+1,
			"of", len(groups),
			"dimension", group.Dimension,
			"parallel", group.Parallel,
			"tools", len(group.Tools))

		var results []models.ToolResult
		if group.Parallel {
			results = c.runParallel(ctx, runID, plan, group, files)
		} else {
			results = c.runSequential(ctx, runID, plan, group, files)
		}
		exec.Results = append(exec.Results, results...)
		c.events.Emit(Event{Type: EventGroupFinished, RunID: runID, Group: gi, Groups: len(groups), Dimension: group.Dimension})

		if ctx.Err() != nil {
			exec.Cancelled = true
			exec.Results = append(exec.Results, c.skipAll(runID, groups[gi+1:], "run cancelled")...)
			break
		}
		if c.stopOnCritical(plan) && IsCritical(results) && gi < len(groups)-1 {
			c.log.Warn("critical failure, skipping remaining groups", "run_id", runID, "dimension", group.Dimension)
			exec.Stopped = true
			exec.Results = append(exec.Results, c.skipAll(runID, groups[gi+1:], fmt.Sprintf("skipped after critical failure in %s", group.Dimension))...)
			break
		}
	}
	return exec
}

func (c *Controller) stopOnCritical(plan *models.ExecutionPlan) bool {
	return c.cfg.StopOnCritical || plan.StopOnCritical
}

// IsCritical reports whether any result has an error-severity violation or
// an execution error.
func IsCritical(results []models.ToolResult) bool {
	for i := range results {
		r := &results[i]
		if r.Metadata.Unavailable || r.Metadata.Skipped {
			if !r.Success {
				return true
			}
			continue
		}
		if r.Error != "" || r.HasErrorViolation() {
			return true
		}
	}
	return false
}

func (c *Controller) runParallel(ctx context.Context, runID string, plan *models.ExecutionPlan, group ExecutionGroup, files FileSource) []models.ToolResult {
	results := make([]models.ToolResult, len(group.Tools))

	// Tool failures are results, never group errors, so one tool can not
	// cancel its siblings.
	g := new(errgroup.Group)
	if c.cfg.MaxParallel > 0 {
		g.SetLimit(c.cfg.MaxParallel)
	}
	for i, req := range group.Tools {
		g.Go(func() error {
			results[i] = *c.runTool(ctx, runID, plan, req, files)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (c *Controller) runSequential(ctx context.Context, runID string, plan *models.ExecutionPlan, group ExecutionGroup, files FileSource) []models.ToolResult {
	results := make([]models.ToolResult, 0, len(group.Tools))
	for i, req := range group.Tools {
		if ctx.Err() != nil {
			for _, rest := range group.Tools[i:] {
				results = append(results, *c.skip(runID, rest, "run cancelled"))
			}
			break
		}
		results = append(results, *c.runTool(ctx, runID, plan, req, files))
	}
	return results
}

// timeoutFor resolves request timeout, then wrappers.<name>.timeout, then
// the default.
func (c *Controller) timeoutFor(req models.ToolRequest) time.Duration {
	if req.Timeout > 0 {
		return req.Timeout
	}
	if c.tools != nil {
		if d := c.tools.GetDuration("wrappers."+req.Name+".timeout", 0); d > 0 {
			return d
		}
	}
	return c.cfg.DefaultTimeout
}

// runTool invokes one wrapper under its timeout. The wrapper runs on its
// own goroutine so a wrapper that ignores its context still cannot hold
// the group past the deadline.
func (c *Controller) runTool(ctx context.Context, runID string, plan *models.ExecutionPlan, req models.ToolRequest, files FileSource) *models.ToolResult {
	start := time.Now()
	log := c.log.With("run_id", runID, "tool", req.Name, "dimension", req.Dimension)

	w, err := c.manager.Get(req.Name)
	if err != nil {
		return faultResult(req, start, err.Error())
	}

	timeout := c.timeoutFor(req)
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c.events.Emit(Event{Type: EventToolStarted, RunID: runID, Dimension: req.Dimension, Tool: req.Name})
	log.Debug("tool started", "timeout", timeout)

	opts := wrappers.Options{Request: req, Mode: plan.EffectiveMode(req)}
	done := make(chan *models.ToolResult, 1)
	go func() {
		done <- invoke(tctx, w, opts, files, log)
	}()

	var res *models.ToolResult
	interrupted := false
	select {
	case res = <-done:
		interrupted = tctx.Err() != nil || (res != nil && (res.Metadata.TimedOut || res.Metadata.Cancelled))
	case <-tctx.Done():
		interrupted = true
		// Grace period for the wrapper to report after its process is killed.
		select {
		case res = <-done:
		case <-time.After(time.Second):
		}
	}

	switch {
	case interrupted && errors.Is(tctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		res = markTimedOut(req, start, res, timeout)
	case interrupted && ctx.Err() != nil:
		res = markCancelled(req, start, res)
	case res == nil:
		res = faultResult(req, start, "wrapper returned no result")
	}

	log.Info("tool finished", "success", res.Success, "status", res.Status, "duration", time.Since(start))
	c.events.Emit(Event{Type: EventToolFinished, RunID: runID, Dimension: req.Dimension, Tool: req.Name, Result: res})
	return res
}

// invoke dispatches on the wrapper kind and turns panics into results.
func invoke(ctx context.Context, w wrappers.Wrapper, opts wrappers.Options, files FileSource, log logging.Logger) (res *models.ToolResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error("wrapper panicked", "panic", r)
			res = faultResult(opts.Request, start, fmt.Sprintf("wrapper panicked: %v", r))
		}
	}()

	switch w.Kind() {
	case wrappers.KindFileBased:
		fw, ok := w.(wrappers.FileWrapper)
		if !ok {
			return faultResult(opts.Request, start, "file-based wrapper does not implement ExecuteFiles")
		}
		var list []string
		if files != nil {
			list = files(opts.Request.Scope)
		}
		res = fw.ExecuteFiles(ctx, list, opts)
	case wrappers.KindConfigBased:
		cw, ok := w.(wrappers.ConfigWrapper)
		if !ok {
			return faultResult(opts.Request, start, "config-based wrapper does not implement ExecuteRequest")
		}
		res = cw.ExecuteRequest(ctx, opts)
	default:
		return faultResult(opts.Request, start, fmt.Sprintf("unknown wrapper kind %s", w.Kind()))
	}
	if res != nil {
		// Results are keyed by the request, whatever the wrapper reports.
		res.Tool = opts.Request.Name
		res.Dimension = opts.Request.Dimension
		res.Scope = opts.Request.Scope
	}
	return res
}

func (c *Controller) skipAll(runID string, groups []ExecutionGroup, reason string) []models.ToolResult {
	var out []models.ToolResult
	for _, g := range groups {
		for _, req := range g.Tools {
			out = append(out, *c.skip(runID, req, reason))
		}
	}
	return out
}

func (c *Controller) skip(runID string, req models.ToolRequest, reason string) *models.ToolResult {
	res := SkippedResult(req, reason)
	c.events.Emit(Event{Type: EventToolSkipped, RunID: runID, Dimension: req.Dimension, Tool: req.Name, Result: res, Message: reason})
	return res
}

// SkippedResult is the pending result of a tool that never ran.
func SkippedResult(req models.ToolRequest, reason string) *models.ToolResult {
	res := &models.ToolResult{
		Tool:       req.Name,
		Dimension:  req.Dimension,
		Scope:      req.Scope,
		Success:    true,
		Violations: []models.Violation{},
		Metadata:   models.ResultMetadata{Skipped: true},
		Warnings:   []models.Message{{Text: reason}},
		Timestamp:  time.Now(),
	}
	res.Status = res.DeriveStatus()
	return res
}

func faultResult(req models.ToolRequest, start time.Time, msg string) *models.ToolResult {
	res := &models.ToolResult{
		Tool:          req.Name,
		Dimension:     req.Dimension,
		Scope:         req.Scope,
		ExecutionTime: models.Millis(time.Since(start)),
		Violations:    []models.Violation{},
		Metadata:      models.ResultMetadata{ExitCode: -1},
		Errors:        []models.Message{{Text: msg}},
		Error:         msg,
		Timestamp:     time.Now(),
	}
	res.Status = res.DeriveStatus()
	return res
}

// markTimedOut forces a timeout outcome even when the wrapper reported
// something else or nothing at all.
func markTimedOut(req models.ToolRequest, start time.Time, res *models.ToolResult, timeout time.Duration) *models.ToolResult {
	msg := fmt.Sprintf("timed out after %s", timeout)
	if res == nil {
		res = faultResult(req, start, msg)
	} else if !res.Metadata.TimedOut {
		res.Error = msg
		res.Errors = append(res.Errors, models.Message{Text: msg})
	}
	res.Success = false
	res.Metadata.TimedOut = true
	res.ExecutionTime = models.Millis(time.Since(start))
	res.Status = res.DeriveStatus()
	return res
}

func markCancelled(req models.ToolRequest, start time.Time, res *models.ToolResult) *models.ToolResult {
	if res == nil {
		res = faultResult(req, start, "cancelled")
	}
	res.Success = false
	res.Metadata.Cancelled = true
	if res.Error == "" {
		res.Error = "cancelled"
		res.Errors = append(res.Errors, models.Message{Text: "cancelled"})
	}
	res.Status = res.DeriveStatus()
	return res
}
