package coordinator

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ShayCichocki/qacoord/internal/logging"
	"github.com/ShayCichocki/qacoord/pkg/models"
)

// EventType represents the type of coordinator event.
type EventType string

const (
	// EventStateChanged indicates the run moved to a new lifecycle state.
	EventStateChanged EventType = "state_changed"
	// EventGroupStarted indicates a dimension group has started.
	EventGroupStarted EventType = "group_started"
	// EventGroupFinished indicates every tool of a group has finished.
	EventGroupFinished EventType = "group_finished"
	// EventToolStarted indicates a wrapper invocation has started.
	EventToolStarted EventType = "tool_started"
	// EventToolFinished indicates a wrapper invocation produced a result.
	EventToolFinished EventType = "tool_finished"
	// EventToolSkipped indicates a tool was not run (unavailable or stopped).
	EventToolSkipped EventType = "tool_skipped"
	// EventRunFinished indicates the report is ready.
	EventRunFinished EventType = "run_finished"
)

// Event is emitted while a run progresses. Used by the TUI and logs.
type Event struct {
	Type      EventType
	RunID     string
	State     models.RunState
	Group     int
	Groups    int
	Dimension models.Dimension
	Tool      string
	// Result is set for tool_finished and tool_skipped events.
	Result *models.ToolResult
	// Report is set for run_finished events.
	Report    *models.AggregatedReport
	Message   string
	Timestamp time.Time
}

// EventEmitter fans coordinator events out to one subscriber. Emit never
// blocks for long; events are dropped when the subscriber falls behind.
type EventEmitter struct {
	events       chan Event
	droppedCount atomic.Uint64
	log          logging.Logger
	closeOnce    sync.Once
	mu           sync.RWMutex
	closed       bool
}

// NewEventEmitter creates an EventEmitter with the given buffer size.
func NewEventEmitter(bufferSize int, log logging.Logger) *EventEmitter {
	if log == nil {
		log = logging.Nop()
	}
	return &EventEmitter{events: make(chan Event, bufferSize), log: log}
}

// Emit sends an event, waiting briefly when the buffer is full.
func (e *EventEmitter) Emit(event Event) {
	if e == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}

	select {
	case e.events <- event:
		return
	default:
	}

	select {
	case e.events <- event:
	case <-time.After(100 * time.Millisecond):
		count := e.droppedCount.Add(1)
		if count%10 == 1 {
			e.log.Warn("event channel full, dropped event", "dropped", count, "type", event.Type)
		}
	}
}

// DroppedCount returns the total number of dropped events.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns the subscriber channel.
func (e *EventEmitter) Events() <-chan Event {
	return e.events
}

// Close closes the events channel. Emit after Close is a no-op.
func (e *EventEmitter) Close() {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		close(e.events)
		e.mu.Unlock()
	})
}
