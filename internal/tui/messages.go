package tui

import (
	"github.com/ShayCichocki/qacoord/internal/coordinator"
	"github.com/ShayCichocki/qacoord/pkg/models"
)

// EventMsg wraps a coordinator event for the program.
type EventMsg struct {
	Event coordinator.Event
}

// RunDoneMsg signals that the coordinator returned.
type RunDoneMsg struct {
	Report *models.AggregatedReport
	Err    error
}
