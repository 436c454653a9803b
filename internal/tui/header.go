package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/qacoord/pkg/models"
)

// Header renders the title bar with run ID, state and group progress.
type Header struct {
	width int

	titleStyle lipgloss.Style
	mutedStyle lipgloss.Style
	stateStyle lipgloss.Style
}

// NewHeader creates a new Header.
func NewHeader() *Header {
	return &Header{
		width:      80,
		titleStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4")).Bold(true),
		mutedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Italic(true),
		stateStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC857")),
	}
}

// SetWidth sets the header width.
func (h *Header) SetWidth(width int) {
	h.width = width
}

// View renders the header.
func (h *Header) View(runID string, state models.RunState, group, groups int) string {
	title := h.titleStyle.Render("qacoord")
	if runID != "" {
		title += " " + h.mutedStyle.Render(shortID(runID))
	}
	line := title
	if state != "" {
		line += "  " + h.stateStyle.Render(string(state))
	}
	if groups > 0 && !state.Terminal() {
		line += "  " + h.mutedStyle.Render(fmt.Sprintf("group %d/%d", min(group+1, groups), groups))
	}
	return lipgloss.NewStyle().Width(h.width).PaddingBottom(1).Render(line)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
