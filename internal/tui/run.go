package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ShayCichocki/qacoord/internal/coordinator"
	"github.com/ShayCichocki/qacoord/pkg/models"
)

// Run shows progress for run, feeding it events until the channel closes.
// cancel aborts the run when the user quits early. After run returns the
// view stays up until the user dismisses it.
func Run(events <-chan coordinator.Event, cancel context.CancelFunc,
	run func() (*models.AggregatedReport, error), opts ...tea.ProgramOption) (*models.AggregatedReport, error) {

	app := New(cancel)
	program := tea.NewProgram(app, opts...)

	go forwardEvents(program, events)

	type outcome struct {
		report *models.AggregatedReport
		err    error
	}
	runDone := make(chan outcome, 1)
	go func() {
		var o outcome
		defer func() {
			if r := recover(); r != nil {
				o.err = fmt.Errorf("PANIC in coordinator: %v", r)
			}
			runDone <- o
			program.Send(RunDoneMsg{Report: o.report, Err: o.err})
		}()
		o.report, o.err = run()
	}()

	_, uiErr := program.Run()
	// Leaving the view early is an abort.
	cancel()
	o := <-runDone
	if uiErr != nil && !errors.Is(uiErr, tea.ErrProgramKilled) {
		return o.report, errors.Join(o.err, fmt.Errorf("tui: %w", uiErr))
	}
	return o.report, o.err
}

// forwardEvents converts coordinator events to program messages.
func forwardEvents(program *tea.Program, events <-chan coordinator.Event) {
	for event := range events {
		program.Send(EventMsg{Event: event})
	}
}
