package report

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/qacoord/pkg/models"
)

// maxTreeViolations caps violations shown under one tool.
const maxTreeViolations = 10

var (
	treeTitle  = lipgloss.NewStyle().Bold(true)
	treeBranch = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	treeMuted  = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Italic(true)

	treeStatus = map[models.Status]lipgloss.Style{
		models.StatusPassed:  lipgloss.NewStyle().Foreground(lipgloss.Color("#96E6A1")),
		models.StatusWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC857")),
		models.StatusError:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8E53")),
		models.StatusFailed:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		models.StatusPending: lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
	}
)

// WriteTree writes the report as a dimension → tool → violation tree.
func WriteTree(w io.Writer, r *models.AggregatedReport) error {
	var b strings.Builder
	b.WriteString(treeTitle.Render("QA run "+shortID(r.RunID)) + " " + renderStatus(r.Status) + "\n")

	dims := make([]models.Dimension, 0, len(r.Details.Dimensions))
	for d := range r.Details.Dimensions {
		dims = append(dims, d)
	}
	slices.SortFunc(dims, func(a, b models.Dimension) int {
		return slices.Index(models.AllDimensions, a) - slices.Index(models.AllDimensions, b)
	})

	for i, dim := range dims {
		lastDim := i == len(dims)-1
		dd := r.Details.Dimensions[dim]
		b.WriteString(branch(lastDim) + string(dim) + " " + renderStatus(dd.Status) + "\n")

		tools := slices.Clone(dd.Tools)
		slices.Sort(tools)
		for j, name := range tools {
			lastTool := j == len(tools)-1
			prefix := indent(lastDim)
			for _, res := range r.Details.Tools[name].Results {
				if res.Dimension != dim {
					continue
				}
				label := name
				if res.Scope != "" {
					label += " (" + string(res.Scope) + ")"
				}
				b.WriteString(prefix + branch(lastTool) + label + " " + renderStatus(res.Status) + " " + treeMuted.Render(toolNote(res)) + "\n")
				writeViolations(&b, prefix+indent(lastTool), res)
			}
		}
	}

	b.WriteString("\n" + renderStatus(r.Status) + " " + r.Summary.Message + "\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeViolations(b *strings.Builder, prefix string, res models.ToolResult) {
	lines := make([]string, 0, len(res.Violations)+1)
	for i, v := range res.Violations {
		if i == maxTreeViolations {
			lines = append(lines, treeMuted.Render(fmt.Sprintf("... %d more", len(res.Violations)-maxTreeViolations)))
			break
		}
		sev := treeStatus[models.StatusWarning]
		if v.Severity == models.SeverityError {
			sev = treeStatus[models.StatusFailed]
		}
		line := sev.Render(string(v.Severity)) + " " + location(v) + " " + v.Message
		if v.DesignMetrics != nil {
			line += " " + v.DesignMetrics.Emoji
		}
		lines = append(lines, line)
	}
	if res.Error != "" {
		lines = append(lines, treeStatus[models.StatusError].Render("error")+" "+res.Error)
	}
	for i, l := range lines {
		b.WriteString(prefix + branch(i == len(lines)-1) + l + "\n")
	}
}

func toolNote(res models.ToolResult) string {
	switch {
	case res.Metadata.Unavailable:
		return "unavailable"
	case res.Metadata.Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("%d files, %s", res.Metadata.FilesProcessed, formatDuration(res.ExecutionTime.Duration()))
	}
}

func location(v models.Violation) string {
	if v.File == "" {
		return ""
	}
	if v.Line > 0 {
		return fmt.Sprintf("%s:%d", v.File, v.Line)
	}
	return v.File
}

func renderStatus(s models.Status) string {
	return treeStatus[s].Render("[" + string(s) + "]")
}

func branch(last bool) string {
	if last {
		return treeBranch.Render("└── ")
	}
	return treeBranch.Render("├── ")
}

func indent(last bool) string {
	if last {
		return "    "
	}
	return treeBranch.Render("│   ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
