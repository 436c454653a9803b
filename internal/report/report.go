// Package report renders aggregated reports for terminals and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/qacoord/pkg/models"
)

// Format selects a renderer.
type Format string

const (
	FormatConsole Format = "console"
	FormatTree    Format = "tree"
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
)

// Formats lists the supported formats.
var Formats = []Format{FormatConsole, FormatTree, FormatJSON, FormatYAML}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "":
		return FormatConsole, nil
	case FormatConsole, FormatTree, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want console, tree, json or yaml)", s)
	}
}

// Write renders r to w in format f.
func Write(w io.Writer, r *models.AggregatedReport, f Format) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, r)
	case FormatYAML:
		return WriteYAML(w, r)
	case FormatTree:
		return WriteTree(w, r)
	case FormatConsole, "":
		return WriteConsole(w, r)
	default:
		return fmt.Errorf("unknown report format %q", f)
	}
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r *models.AggregatedReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteYAML writes the report as YAML.
func WriteYAML(w io.Writer, r *models.AggregatedReport) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode yaml report: %w", err)
	}
	return enc.Close()
}
