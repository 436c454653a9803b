// Package coordinator plans, executes and aggregates multi-tool QA runs.
package coordinator

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ShayCichocki/qacoord/internal/config"
	iexec "github.com/ShayCichocki/qacoord/internal/exec"
	"github.com/ShayCichocki/qacoord/internal/files"
	"github.com/ShayCichocki/qacoord/internal/logging"
	"github.com/ShayCichocki/qacoord/internal/wrappers"
	"github.com/ShayCichocki/qacoord/pkg/models"
)

// probeParallelism bounds concurrent availability probes.
const probeParallelism = 8

// Coordinator is the entry point for a QA run.
type Coordinator struct {
	cfg  *config.Config
	opts coordinatorOptions

	mu    sync.Mutex
	state models.RunState
}

// New creates a Coordinator from configuration and options. A nil cfg uses
// the built-in defaults.
func New(cfg *config.Config, opts ...Option) *Coordinator {
	if cfg == nil {
		cfg = config.Default()
	}
	o := coordinatorOptions{
		stopOnCritical: cfg.Execution.StopOnCritical,
		maxParallel:    cfg.Execution.MaxParallel,
		defaultTimeout: cfg.Execution.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.Nop()
	}
	if o.runner == nil {
		o.runner = iexec.NewRunner()
	}
	if o.newFS == nil {
		o.newFS = func(root string) iexec.FileSystem { return iexec.NewFileSystem(root) }
	}
	if o.registry == nil {
		o.registry = wrappers.DefaultRegistry()
	}
	if o.order == nil {
		order, err := OrderByName(cfg.Execution.Order)
		if err != nil {
			o.logger.Warn("falling back to first_seen group order", "error", err)
			order = FirstSeenOrder{}
		}
		o.order = order
	}
	return &Coordinator{cfg: cfg, opts: o, state: models.RunStatePlanned}
}

// State returns the lifecycle state of the current or last run.
func (c *Coordinator) State() models.RunState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) setState(runID string, s models.RunState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.opts.logger.Debug("run state changed", "run_id", runID, "state", s)
	c.opts.events.Emit(Event{Type: EventStateChanged, RunID: runID, State: s})
}

// Validate checks a plan without running anything.
func (c *Coordinator) Validate(plan *models.ExecutionPlan) error {
	p := normalize(plan.Clone(), "")
	manager := NewWrapperManager(c.opts.registry, wrappers.Deps{Logger: c.opts.logger})
	return NewPlanner(manager, c.opts.order, c.cfg.Execution.SequentialDimensions).Validate(p)
}

// Groups validates a plan and returns its execution groups.
func (c *Coordinator) Groups(plan *models.ExecutionPlan) ([]ExecutionGroup, error) {
	p := normalize(plan.Clone(), "")
	manager := NewWrapperManager(c.opts.registry, wrappers.Deps{Logger: c.opts.logger})
	return NewPlanner(manager, c.opts.order, c.cfg.Execution.SequentialDimensions).Plan(p)
}

// Run executes plan and returns the aggregated report. The error is set
// only for plan and initialization failures, before any tool runs; tool
// failures, unavailable tools and cancellation are reported in the report.
func (c *Coordinator) Run(ctx context.Context, plan *models.ExecutionPlan) (*models.AggregatedReport, error) {
	if plan == nil {
		return nil, fmt.Errorf("%w: nil plan", ErrInvalidPlan)
	}
	start := time.Now()
	runID := uuid.NewString()
	p := normalize(plan.Clone(), runID)
	log := c.opts.logger.With("run_id", runID)

	c.setState(runID, models.RunStatePlanned)
	c.setState(runID, models.RunStateInitializing)
	log.Info("run started", "plan", p.ID, "root", p.Root, "tools", len(p.Tools))

	deps := wrappers.Deps{
		Config: c.cfg.Accessor(),
		Logger: c.opts.logger,
		Runner: c.opts.runner,
		FS:     c.opts.newFS(p.Root),
		Root:   p.Root,
	}
	manager := NewWrapperManager(c.opts.registry, deps)
	planner := NewPlanner(manager, c.opts.order, c.cfg.Execution.SequentialDimensions)

	if err := planner.Validate(p); err != nil {
		c.setState(runID, models.RunStateFailed)
		log.Error("plan rejected", "error", err)
		return nil, err
	}
	if err := manager.Load(toolNames(p.Tools)); err != nil {
		c.setState(runID, models.RunStateFailed)
		return nil, fmt.Errorf("load wrappers: %w", err)
	}

	runnable, skipped := c.probe(ctx, runID, manager, p.Tools)
	groups := planner.Group(runnable)
	if len(groups) == 0 {
		log.Warn("no runnable tools in plan", "requested", len(p.Tools))
	}

	c.setState(runID, models.RunStateExecuting)
	controller := NewController(manager, ControllerConfig{
		DefaultTimeout: c.opts.defaultTimeout,
		MaxParallel:    c.opts.maxParallel,
		StopOnCritical: c.opts.stopOnCritical,
	}, c.cfg.Accessor(), log, c.opts.events)
	exec := controller.Execute(ctx, runID, p, groups, c.fileSource(p, log))

	c.setState(runID, models.RunStateAggregating)
	final := models.RunStateCompleted
	incomplete := exec.Stopped
	if exec.Cancelled || ctx.Err() != nil {
		final = models.RunStateFailed
		incomplete = true
		log.Warn("run cancelled, reporting partial results", "results", len(exec.Results))
	}

	report := Aggregate(append(skipped, exec.Results...), RunInfo{
		RunID:      runID,
		PlanID:     p.ID,
		State:      final,
		Incomplete: incomplete,
		TotalTime:  time.Since(start),
		Groups:     exec.GroupsRun,
		Finished:   time.Now(),
	})

	if c.opts.recorder != nil {
		// The run context may already be cancelled; the record still goes in.
		if err := c.opts.recorder.Record(context.WithoutCancel(ctx), report); err != nil {
			log.Warn("failed to record run", "error", err)
		}
	}

	c.setState(runID, final)
	c.opts.events.Emit(Event{Type: EventRunFinished, RunID: runID, State: final, Report: report, Message: report.Summary.Message})
	log.Info("run finished",
		"state", final,
		"success", report.Success,
		"status", report.Status,
		"message", report.Summary.Message,
		"duration", report.Details.Execution.TotalTime)
	return report, nil
}

// probe checks availability of every distinct tool once. Requests for
// unavailable tools get a pending result, or a failed one when required.
func (c *Coordinator) probe(ctx context.Context, runID string, manager *WrapperManager, reqs []models.ToolRequest) ([]models.ToolRequest, []models.ToolResult) {
	names := toolNames(reqs)
	available := make([]bool, len(names))

	g := new(errgroup.Group)
	g.SetLimit(probeParallelism)
	for i, name := range names {
		g.Go(func() error {
			w, err := manager.Get(name)
			if err != nil {
				return nil
			}
			available[i] = w.IsAvailable(ctx)
			return nil
		})
	}
	_ = g.Wait()

	avail := make(map[string]bool, len(names))
	for i, name := range names {
		avail[name] = available[i]
	}

	var runnable []models.ToolRequest
	var skipped []models.ToolResult
	for _, req := range reqs {
		if avail[req.Name] {
			runnable = append(runnable, req)
			continue
		}
		res := UnavailableResult(req)
		c.opts.logger.Warn("tool unavailable", "run_id", runID, "tool", req.Name, "required", req.Required)
		c.opts.events.Emit(Event{Type: EventToolSkipped, RunID: runID, Dimension: req.Dimension, Tool: req.Name, Result: res, Message: "unavailable"})
		skipped = append(skipped, *res)
	}
	return runnable, skipped
}

// UnavailableResult is the result for a tool whose binary could not be
// probed. It does not affect the verdict unless the request is required.
func UnavailableResult(req models.ToolRequest) *models.ToolResult {
	res := &models.ToolResult{
		Tool:       req.Name,
		Dimension:  req.Dimension,
		Scope:      req.Scope,
		Success:    !req.Required,
		Violations: []models.Violation{},
		Metadata:   models.ResultMetadata{Unavailable: true},
		Timestamp:  time.Now(),
	}
	if req.Required {
		res.Errors = []models.Message{{Text: fmt.Sprintf("required tool %s is not available", req.Name)}}
	} else {
		res.Warnings = []models.Message{{Text: fmt.Sprintf("%s is not available, skipped", req.Name)}}
	}
	res.Status = res.DeriveStatus()
	return res
}

// fileSource returns the per-scope file lists, computed once per scope.
// Explicit plan files are filtered by scope prefixes; otherwise the root
// is walked.
func (c *Coordinator) fileSource(p *models.ExecutionPlan, log logging.Logger) FileSource {
	var (
		mu        sync.Mutex
		cache     = make(map[models.Scope][]string)
		collector *files.Collector
	)
	return func(scope models.Scope) []string {
		mu.Lock()
		defer mu.Unlock()
		if list, ok := cache[scope]; ok {
			return list
		}

		var prefixes []string
		if scope != models.ScopeAll {
			prefixes = c.cfg.Scopes[string(scope)].Paths
		}

		var list []string
		if len(p.Files) > 0 || p.FilesOnly {
			list = files.FilterByPrefix(p.Files, prefixes)
		} else {
			if collector == nil {
				var err error
				if collector, err = files.NewCollector(p.Root); err != nil {
					log.Error("file collection failed", "error", err)
					return nil
				}
			}
			var err error
			if list, err = collector.Collect(prefixes); err != nil {
				log.Error("file collection failed", "scope", scope, "error", err)
				return nil
			}
		}
		cache[scope] = list
		return list
	}
}

// normalize fills plan defaults on a private copy.
func normalize(p *models.ExecutionPlan, runID string) *models.ExecutionPlan {
	if p.ID == "" {
		p.ID = runID
	}
	if p.Root == "" {
		p.Root = "."
	}
	if abs, err := filepath.Abs(p.Root); err == nil {
		p.Root = abs
	}
	for i := range p.Tools {
		if p.Tools[i].Scope == "" {
			p.Tools[i].Scope = models.ScopeAll
		}
	}
	return p
}

func toolNames(reqs []models.ToolRequest) []string {
	var names []string
	for _, r := range reqs {
		if !slices.Contains(names, r.Name) {
			names = append(names, r.Name)
		}
	}
	return names
}
