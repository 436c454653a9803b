package wrappers

import (
	"maps"
	"slices"
)

// Registry maps wrapper names to factories.
type Registry map[string]Factory

// DefaultRegistry returns the built-in wrappers.
func DefaultRegistry() Registry {
	return Registry{
		"eslint":     NewESLint,
		"prettier":   NewPrettier,
		"ruff":       NewRuff,
		"black":      NewBlack,
		"pytest":     NewPytest,
		"semgrep":    NewSemgrep,
		"snyk":       NewSnyk,
		"spectral":   NewSpectral,
		"megalinter": NewMegaLinter,
		"build":      NewBuild,
		"data":       NewData,
	}
}

// Has reports whether name is registered.
func (r Registry) Has(name string) bool {
	_, ok := r[name]
	return ok
}

// Names returns the registered names sorted.
func (r Registry) Names() []string {
	return slices.Sorted(maps.Keys(r))
}

// Compile-time checks.
var (
	_ FileWrapper   = (*ESLint)(nil)
	_ FileWrapper   = (*Prettier)(nil)
	_ FileWrapper   = (*Ruff)(nil)
	_ FileWrapper   = (*Black)(nil)
	_ FileWrapper   = (*Pytest)(nil)
	_ ConfigWrapper = (*Semgrep)(nil)
	_ ConfigWrapper = (*Snyk)(nil)
	_ ConfigWrapper = (*Spectral)(nil)
	_ ConfigWrapper = (*MegaLinter)(nil)
	_ ConfigWrapper = (*Build)(nil)
	_ ConfigWrapper = (*Data)(nil)
)
