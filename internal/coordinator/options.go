package coordinator

import (
	"context"
	"time"

	iexec "github.com/ShayCichocki/qacoord/internal/exec"
	"github.com/ShayCichocki/qacoord/internal/logging"
	"github.com/ShayCichocki/qacoord/internal/wrappers"
	"github.com/ShayCichocki/qacoord/pkg/models"
)

// Recorder persists finished reports.
type Recorder interface {
	Record(ctx context.Context, report *models.AggregatedReport) error
}

// Option configures a Coordinator. Use With* functions to create Options.
type Option func(*coordinatorOptions)

type coordinatorOptions struct {
	logger         logging.Logger
	runner         iexec.ProcessRunner
	newFS          func(root string) iexec.FileSystem
	registry       wrappers.Registry
	order          OrderPolicy
	events         *EventEmitter
	recorder       Recorder
	stopOnCritical bool
	maxParallel    int
	defaultTimeout time.Duration
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(o *coordinatorOptions) { o.logger = l }
}

// WithRunner sets the process runner used by every wrapper.
func WithRunner(r iexec.ProcessRunner) Option {
	return func(o *coordinatorOptions) { o.runner = r }
}

// WithFileSystem sets the file-system factory, called once per run with
// the plan root.
func WithFileSystem(newFS func(root string) iexec.FileSystem) Option {
	return func(o *coordinatorOptions) { o.newFS = newFS }
}

// WithRegistry replaces the built-in wrapper registry.
func WithRegistry(r wrappers.Registry) Option {
	return func(o *coordinatorOptions) { o.registry = r }
}

// WithOrderPolicy sets how dimension groups are ordered.
func WithOrderPolicy(p OrderPolicy) Option {
	return func(o *coordinatorOptions) { o.order = p }
}

// WithEvents sets the event emitter progress is reported to.
func WithEvents(e *EventEmitter) Option {
	return func(o *coordinatorOptions) { o.events = e }
}

// WithRecorder persists every report after aggregation.
func WithRecorder(r Recorder) Option {
	return func(o *coordinatorOptions) { o.recorder = r }
}

// WithStopOnCritical skips remaining groups after a critical failure.
func WithStopOnCritical(b bool) Option {
	return func(o *coordinatorOptions) { o.stopOnCritical = b }
}

// WithMaxParallel caps concurrent tools within a group.
func WithMaxParallel(n int) Option {
	return func(o *coordinatorOptions) { o.maxParallel = n }
}

// WithDefaultTimeout sets the per-tool timeout used when nothing else does.
func WithDefaultTimeout(d time.Duration) Option {
	return func(o *coordinatorOptions) { o.defaultTimeout = d }
}
