package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ShayCichocki/qacoord/pkg/models"
)

// ToolSchema maps dimension -> scope -> tool names. It is decoded and
// validated once, then used to expand a dimension/scope selection into
// tool requests.
type ToolSchema map[models.Dimension]map[models.Scope][]string

// Schema decodes the tools section of the configuration.
func (c *Config) Schema() ToolSchema {
	schema := make(ToolSchema)
	// AllSettings deep-merges defaults with file overrides; Get("tools")
	// would return only the highest-precedence map.
	raw, _ := c.store.AllSettings()["tools"].(map[string]any)
	for dim, scopes := range raw {
		scopeMap, ok := scopes.(map[string]any)
		if !ok {
			continue
		}
		byScope := make(map[models.Scope][]string)
		for scope, tools := range scopeMap {
			byScope[models.Scope(scope)] = toStrings(tools)
		}
		schema[models.Dimension(dim)] = byScope
	}
	return schema
}

// Validate checks every dimension, scope and tool name. known reports
// whether a tool name has a registered wrapper.
func (s ToolSchema) Validate(known func(string) bool) error {
	var errs []error
	for _, dim := range s.dimensions() {
		if !dim.Valid() {
			errs = append(errs, fmt.Errorf("tools.%s: unknown dimension", dim))
			continue
		}
		for scope, tools := range s[dim] {
			if !scope.Valid() {
				errs = append(errs, fmt.Errorf("tools.%s.%s: unknown scope", dim, scope))
				continue
			}
			for _, name := range tools {
				if !known(name) {
					errs = append(errs, fmt.Errorf("tools.%s.%s: unknown tool %q", dim, scope, name))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// Requests expands the selected dimensions and scopes into tool requests.
// Empty selections mean "all". Output order is canonical dimension order,
// then scope order, then configured tool order.
func (s ToolSchema) Requests(dims []models.Dimension, scopes []models.Scope, mode models.Mode) []models.ToolRequest {
	if len(dims) == 0 {
		dims = models.AllDimensions
	}
	if len(scopes) == 0 {
		scopes = models.AllScopes
	}

	var out []models.ToolRequest
	seen := make(map[string]bool)
	for _, dim := range models.AllDimensions {
		if !slices.Contains(dims, dim) {
			continue
		}
		for _, scope := range models.AllScopes {
			if !slices.Contains(scopes, scope) {
				continue
			}
			for _, name := range s[dim][scope] {
				req := models.ToolRequest{Name: name, Dimension: dim, Scope: scope, Mode: mode}
				if seen[req.Key()] {
					continue
				}
				seen[req.Key()] = true
				out = append(out, req)
			}
		}
	}
	return out
}

func (s ToolSchema) dimensions() []models.Dimension {
	dims := make([]models.Dimension, 0, len(s))
	for d := range s {
		dims = append(dims, d)
	}
	slices.Sort(dims)
	return dims
}

func toStrings(v any) []string {
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
