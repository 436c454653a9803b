package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/qacoord/internal/coordinator"
	"github.com/ShayCichocki/qacoord/pkg/models"
)

// maxLogs is how many activity lines are kept.
const maxLogs = 8

type rowState int

const (
	rowQueued rowState = iota
	rowRunning
	rowDone
	rowSkipped
)

type toolRow struct {
	tool      string
	dimension models.Dimension
	state     rowState
	started   time.Time
	result    *models.ToolResult
	note      string
}

var (
	statusStyles = map[models.Status]lipgloss.Style{
		models.StatusPassed:  lipgloss.NewStyle().Foreground(lipgloss.Color("#96E6A1")),
		models.StatusWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC857")),
		models.StatusError:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8E53")),
		models.StatusFailed:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		models.StatusPending: lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
	}
	statusSymbols = map[models.Status]string{
		models.StatusPassed:  "✓",
		models.StatusWarning: "!",
		models.StatusError:   "✗",
		models.StatusFailed:  "✗",
		models.StatusPending: "-",
	}
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// App is the bubbletea model for a single coordinator run.
type App struct {
	header  *Header
	spinner spinner.Model

	runID  string
	state  models.RunState
	group  int
	groups int

	rows  []*toolRow
	index map[string]*toolRow
	logs  []string

	width  int
	height int

	// abort is invoked once when the user asks to stop the run.
	abort    func()
	aborting bool

	done   bool
	report *models.AggregatedReport
	err    error
}

// New creates an App. abort may be nil.
func New(abort func()) *App {
	return &App{
		header:  NewHeader(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#45B7D1")))),
		index:   make(map[string]*toolRow),
		abort:   abort,
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return a.spinner.Tick
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if a.done || a.aborting {
				return a, tea.Quit
			}
			a.aborting = true
			a.log("abort requested, waiting for running tools")
			if a.abort != nil {
				a.abort()
			}
		case "enter":
			if a.done {
				return a, tea.Quit
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.header.SetWidth(msg.Width)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case EventMsg:
		a.handleEvent(msg.Event)

	case RunDoneMsg:
		a.done = true
		a.report = msg.Report
		a.err = msg.Err
		if msg.Report != nil {
			a.state = msg.Report.State
		}
	}

	return a, nil
}

func (a *App) handleEvent(e coordinator.Event) {
	if a.runID == "" {
		a.runID = e.RunID
	}
	switch e.Type {
	case coordinator.EventStateChanged:
		a.state = e.State
	case coordinator.EventGroupStarted:
		a.group, a.groups = e.Group, e.Groups
		a.log(fmt.Sprintf("group %d/%d: %s", e.Group+1, e.Groups, e.Dimension))
	case coordinator.EventToolStarted:
		r := a.row(e.Tool, e.Dimension)
		r.state = rowRunning
		r.started = e.Timestamp
	case coordinator.EventToolFinished:
		r := a.row(e.Tool, e.Dimension)
		r.state = rowDone
		r.result = e.Result
		if e.Result != nil && e.Result.Error != "" {
			a.log(fmt.Sprintf("%s: %s", e.Tool, e.Result.Error))
		}
	case coordinator.EventToolSkipped:
		r := a.row(e.Tool, e.Dimension)
		r.state = rowSkipped
		r.result = e.Result
		r.note = e.Message
	case coordinator.EventRunFinished:
		a.state = e.State
		a.log(e.Message)
	}
}

func (a *App) row(tool string, dim models.Dimension) *toolRow {
	key := tool + "/" + string(dim)
	if r, ok := a.index[key]; ok {
		return r
	}
	r := &toolRow{tool: tool, dimension: dim}
	a.index[key] = r
	a.rows = append(a.rows, r)
	return r
}

func (a *App) log(line string) {
	if line == "" {
		return
	}
	a.logs = append(a.logs, line)
	if len(a.logs) > maxLogs {
		a.logs = a.logs[len(a.logs)-maxLogs:]
	}
}

// Report returns the final report once the run is done.
func (a *App) Report() *models.AggregatedReport {
	return a.report
}

// View implements tea.Model.
func (a *App) View() string {
	var b strings.Builder
	b.WriteString(a.header.View(a.runID, a.state, a.group, a.groups))
	b.WriteString("\n")

	if len(a.rows) == 0 {
		b.WriteString(mutedStyle.Render("waiting for tools...") + "\n")
	}
	for _, r := range a.rows {
		b.WriteString(a.viewRow(r) + "\n")
	}

	if len(a.logs) > 0 {
		b.WriteString("\n")
		for _, l := range a.logs {
			b.WriteString(mutedStyle.Render("  "+l) + "\n")
		}
	}

	b.WriteString("\n" + a.viewFooter())
	return b.String()
}

func (a *App) viewRow(r *toolRow) string {
	var symbol, detail string
	switch r.state {
	case rowQueued:
		symbol = mutedStyle.Render("·")
	case rowRunning:
		symbol = a.spinner.View()
		if !r.started.IsZero() {
			detail = mutedStyle.Render(time.Since(r.started).Round(time.Second).String())
		}
	case rowDone, rowSkipped:
		status := models.StatusPending
		if r.result != nil {
			status = r.result.Status
		}
		symbol = statusStyles[status].Render(statusSymbols[status])
		detail = resultDetail(r)
	}
	return fmt.Sprintf("%s %-12s %-9s %s", symbol, r.tool, r.dimension, detail)
}

func resultDetail(r *toolRow) string {
	res := r.result
	if res == nil {
		return mutedStyle.Render(r.note)
	}
	switch {
	case res.Metadata.Unavailable:
		return mutedStyle.Render("unavailable")
	case res.Metadata.Skipped:
		return mutedStyle.Render("skipped")
	}
	errs := res.CountSeverity(models.SeverityError)
	warns := res.CountSeverity(models.SeverityWarning)
	text := fmt.Sprintf("%d errors, %d warnings, %d files, %s", errs, warns, res.Metadata.FilesProcessed,
		res.ExecutionTime.Duration().Round(10*time.Millisecond))
	if res.Error != "" {
		text += " (" + res.Error + ")"
	}
	return statusStyles[res.Status].Render(text)
}

func (a *App) viewFooter() string {
	switch {
	case a.done && a.err != nil:
		return errorStyle.Render("run failed: "+a.err.Error()) + "\n" + hintStyle.Render("q: quit")
	case a.done && a.report != nil:
		st := a.report.Status
		return statusStyles[st].Render(statusSymbols[st]+" "+a.report.Summary.Message) + "\n" + hintStyle.Render("q/enter: quit")
	case a.done:
		return hintStyle.Render("q/enter: quit")
	case a.aborting:
		return hintStyle.Render("aborting... q: quit now")
	default:
		return hintStyle.Render("q/ctrl+c: abort")
	}
}
