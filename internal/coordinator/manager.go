package coordinator

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/ShayCichocki/qacoord/internal/wrappers"
)

// ErrUnknownTool is returned when a plan names a tool with no registered wrapper.
var ErrUnknownTool = errors.New("unknown tool")

// WrapperManager resolves tool names to wrapper instances. Each wrapper is
// built once with the shared dependencies and reused for the whole run.
type WrapperManager struct {
	registry wrappers.Registry
	deps     wrappers.Deps

	mu        sync.Mutex
	instances map[string]wrappers.Wrapper
}

// NewWrapperManager creates a manager over registry. A nil registry uses
// the built-in wrappers.
func NewWrapperManager(registry wrappers.Registry, deps wrappers.Deps) *WrapperManager {
	if registry == nil {
		registry = wrappers.DefaultRegistry()
	}
	return &WrapperManager{
		registry:  registry,
		deps:      deps,
		instances: make(map[string]wrappers.Wrapper),
	}
}

// Known reports whether name has a registered factory.
func (m *WrapperManager) Known(name string) bool {
	return m.registry.Has(name)
}

// Load resolves every name before instantiating anything, so an unknown
// name fails the whole call without side effects.
func (m *WrapperManager) Load(names []string) error {
	var errs []error
	for _, name := range names {
		if !m.registry.Has(name) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownTool, name))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	for _, name := range names {
		if _, err := m.Get(name); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the cached wrapper for name, building it on first use.
func (m *WrapperManager) Get(name string) (wrappers.Wrapper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if w, ok := m.instances[name]; ok {
		return w, nil
	}
	factory, ok := m.registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	w := factory(m.deps)
	m.instances[name] = w
	return w, nil
}

// Names returns the names of the instantiated wrappers, sorted.
func (m *WrapperManager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.instances))
}
