// Package wrappers adapts external QA tools (linters, formatters, test
// runners, security scanners, build and data validators) to one execution
// contract and normalizes their output into violations.
package wrappers

import (
	"context"

	"github.com/ShayCichocki/qacoord/internal/config"
	iexec "github.com/ShayCichocki/qacoord/internal/exec"
	"github.com/ShayCichocki/qacoord/internal/logging"
	"github.com/ShayCichocki/qacoord/pkg/models"
)

// Kind tells the controller which execution shape a wrapper expects.
type Kind int

const (
	// KindFileBased wrappers receive an explicit file list.
	KindFileBased Kind = iota
	// KindConfigBased wrappers receive the whole tool request and decide
	// which sub-tools or actions to run from scope and configuration.
	KindConfigBased
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindFileBased:
		return "file"
	case KindConfigBased:
		return "config"
	default:
		return "unknown"
	}
}

// Deps are the shared collaborators injected into every wrapper.
type Deps struct {
	Config config.Accessor
	Logger logging.Logger
	Runner iexec.ProcessRunner
	FS     iexec.FileSystem
	// Root is the repository root tools run in.
	Root string
}

// Options carry per-invocation settings.
type Options struct {
	Request models.ToolRequest
	Mode    models.Mode
}

// Wrapper is the contract every tool adapter satisfies.
type Wrapper interface {
	// Name is the stable identifier used for lookup and logging.
	Name() string
	// Kind reports which Execute shape the wrapper implements.
	Kind() Kind
	// Dimensions lists the dimensions the tool may be requested under.
	Dimensions() []models.Dimension
	// Scopes lists the scopes the tool applies to.
	Scopes() []models.Scope
	// Policy is the tool's exit-code convention.
	Policy() ExitPolicy
	// Version queries the underlying binary's version.
	Version(ctx context.Context) (string, error)
	// IsAvailable probes the binary. It never fails; a missing or broken
	// binary logs a warning and returns false.
	IsAvailable(ctx context.Context) bool
}

// FileWrapper runs a tool over an explicit file list.
type FileWrapper interface {
	Wrapper
	// Extensions are the file extensions the tool processes.
	Extensions() []string
	// ExecuteFiles runs the tool. Files the tool cannot process are
	// filtered out; an empty remainder is a successful no-op.
	ExecuteFiles(ctx context.Context, files []string, opts Options) *models.ToolResult
}

// ConfigWrapper runs a tool from a whole tool request.
type ConfigWrapper interface {
	Wrapper
	// ExecuteRequest runs every action configured for the request scope
	// and merges the outcomes into one result.
	ExecuteRequest(ctx context.Context, opts Options) *models.ToolResult
}

// Factory builds a wrapper from shared dependencies.
type Factory func(deps Deps) Wrapper
