package models

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Dimension is a quality category used to group tools for scheduling and reporting.
type Dimension string

const (
	// DimensionFormat covers code formatters (prettier, black).
	DimensionFormat Dimension = "format"
	// DimensionLint covers linters (eslint, ruff, spectral, megalinter).
	DimensionLint Dimension = "lint"
	// DimensionSecurity covers security scanners (semgrep, snyk).
	DimensionSecurity Dimension = "security"
	// DimensionTest covers test runners (pytest).
	DimensionTest Dimension = "test"
	// DimensionBuild covers build validation.
	DimensionBuild Dimension = "build"
	// DimensionData covers dependency and data integrity validation.
	DimensionData Dimension = "data"
)

// AllDimensions lists every recognized dimension in canonical order.
var AllDimensions = []Dimension{
	DimensionFormat,
	DimensionLint,
	DimensionSecurity,
	DimensionTest,
	DimensionBuild,
	DimensionData,
}

// Valid returns true if the dimension is a known value.
func (d Dimension) Valid() bool {
	switch d {
	case DimensionFormat, DimensionLint, DimensionSecurity,
		DimensionTest, DimensionBuild, DimensionData:
		return true
	default:
		return false
	}
}

// Sequential reports whether tools in this dimension must run one at a time.
// Build and data validators mutate shared package-manager state.
func (d Dimension) Sequential() bool {
	return d == DimensionBuild || d == DimensionData
}

// Scope selects which part of a repository a tool request applies to.
type Scope string

const (
	ScopeFrontend       Scope = "frontend"
	ScopeBackend        Scope = "backend"
	ScopeInfrastructure Scope = "infrastructure"
	ScopeAPI            Scope = "api"
	ScopeAll            Scope = "all"
)

// AllScopes lists every recognized scope.
var AllScopes = []Scope{ScopeFrontend, ScopeBackend, ScopeInfrastructure, ScopeAPI, ScopeAll}

// Valid returns true if the scope is a known value.
func (s Scope) Valid() bool {
	switch s {
	case ScopeFrontend, ScopeBackend, ScopeInfrastructure, ScopeAPI, ScopeAll:
		return true
	default:
		return false
	}
}

// Covers reports whether a request with scope s applies to a tool supporting other.
func (s Scope) Covers(other Scope) bool {
	return s == ScopeAll || other == ScopeAll || s == other
}

// Mode selects between a fast pre-commit style run and a full run.
type Mode string

const (
	ModeFast Mode = "fast"
	ModeFull Mode = "full"
)

// Valid returns true if the mode is a known value. Empty is accepted and
// resolved against the plan mode.
func (m Mode) Valid() bool {
	return m == "" || m == ModeFast || m == ModeFull
}

// ToolRequest asks for one tool to run within a dimension and scope.
type ToolRequest struct {
	// Name identifies the wrapper (eslint, ruff, semgrep, ...).
	Name string `yaml:"name" json:"name"`
	// Dimension is the quality category this request belongs to.
	Dimension Dimension `yaml:"dimension" json:"dimension"`
	// Scope filters which part of the repository the tool looks at.
	Scope Scope `yaml:"scope" json:"scope"`
	// Mode overrides the plan mode for this request.
	Mode Mode `yaml:"mode,omitempty" json:"mode,omitempty"`
	// Required turns an unavailable binary into a failure instead of a skip.
	Required bool `yaml:"required,omitempty" json:"required,omitempty"`
	// Timeout overrides the configured per-tool timeout.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	// Config holds free-form tool options (args, thresholds, requirements file).
	Config map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
}

// Key returns the identity used to detect duplicate requests.
func (r ToolRequest) Key() string {
	return fmt.Sprintf("%s/%s/%s", r.Name, r.Dimension, r.Scope)
}

// String returns a config value as a string, or "" when absent.
func (r ToolRequest) String(key string) string {
	if v, ok := r.Config[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return ""
}

// StringSlice returns a config value as a string slice. A single string is
// returned as a one-element slice.
func (r ToolRequest) StringSlice(key string) []string {
	v, ok := r.Config[key]
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		return []string{t}
	default:
		return nil
	}
}

// Int returns a config value as an int, or def when absent or not numeric.
func (r ToolRequest) Int(key string, def int) int {
	switch v := r.Config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// Clone returns a deep copy of the request.
func (r ToolRequest) Clone() ToolRequest {
	out := r
	if r.Config != nil {
		out.Config = make(map[string]any, len(r.Config))
		for k, v := range r.Config {
			if s, ok := v.([]any); ok {
				v = append([]any(nil), s...)
			}
			out.Config[k] = v
		}
	}
	return out
}

// ExecutionPlan is the input contract for a coordinator run.
type ExecutionPlan struct {
	// ID names the plan in logs and history; generated when empty.
	ID string `yaml:"id,omitempty" json:"id,omitempty"`
	// Root is the repository root tools run in. Defaults to the working directory.
	Root string `yaml:"root,omitempty" json:"root,omitempty"`
	// Files restricts file-based tools to an explicit list. When empty the
	// coordinator collects files under Root.
	Files []string `yaml:"files,omitempty" json:"files,omitempty"`
	// FilesOnly makes Files authoritative even when it is empty, e.g. a
	// changed-files run with nothing changed.
	FilesOnly bool `yaml:"files_only,omitempty" json:"filesOnly,omitempty"`
	// Mode is the overall mode applied to requests without their own.
	Mode Mode `yaml:"mode,omitempty" json:"mode,omitempty"`
	// StopOnCritical aborts remaining groups after a critical failure.
	StopOnCritical bool `yaml:"stop_on_critical,omitempty" json:"stopOnCritical,omitempty"`
	// Tools is the ordered list of tool requests.
	Tools []ToolRequest `yaml:"tools" json:"tools"`
}

// EffectiveMode returns the mode a request runs in.
func (p *ExecutionPlan) EffectiveMode(r ToolRequest) Mode {
	if r.Mode != "" {
		return r.Mode
	}
	if p.Mode != "" {
		return p.Mode
	}
	return ModeFast
}

// Clone returns a deep copy so a submitted plan cannot change mid-run.
func (p *ExecutionPlan) Clone() *ExecutionPlan {
	out := *p
	out.Files = append([]string(nil), p.Files...)
	out.Tools = make([]ToolRequest, len(p.Tools))
	for i, t := range p.Tools {
		out.Tools[i] = t.Clone()
	}
	return &out
}

// LoadPlan reads an execution plan from a YAML file.
func LoadPlan(path string) (*ExecutionPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan %s: %w", path, err)
	}
	return ParsePlan(data)
}

// ParsePlan decodes an execution plan from YAML.
func ParsePlan(data []byte) (*ExecutionPlan, error) {
	var p ExecutionPlan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	return &p, nil
}
