// Package exec provides the process-execution and file-existence seams that
// every tool wrapper goes through.
package exec

import (
	"context"
	"time"
)

// ProcessSpec describes one argv-style invocation. No shell is involved.
type ProcessSpec struct {
	// Binary is the executable name or path.
	Binary string
	// Args are passed verbatim to the binary.
	Args []string
	// Dir is the working directory; empty means the current directory.
	Dir string
	// Env entries are appended to the inherited environment.
	Env []string
}

// ProcessResult captures the outcome of a finished process.
type ProcessResult struct {
	// Success is true when the process ran and exited with code 0.
	Success bool
	// ExitCode is the process exit code, or -1 if it never started or was killed.
	ExitCode int
	// Stdout and Stderr are captured separately.
	Stdout string
	Stderr string
	// Duration is the wall time from spawn to exit.
	Duration time.Duration
	// TimedOut is set when the context deadline killed the process.
	TimedOut bool
	// Cancelled is set when context cancellation killed the process.
	Cancelled bool
	// Err is set when the process could not be started or waited on.
	Err error
}

// Started reports whether the binary actually ran to an exit status.
func (r *ProcessResult) Started() bool {
	return r.Err == nil && !r.TimedOut && !r.Cancelled
}

// ProcessRunner executes external binaries.
// Implementations must be safe for concurrent use.
type ProcessRunner interface {
	// Execute runs the process to completion or until ctx is done. When ctx
	// is done the whole process tree is terminated before Execute returns.
	Execute(ctx context.Context, spec ProcessSpec) *ProcessResult

	// LookPath resolves a binary name relative to dir, returning "" if it
	// cannot be found.
	LookPath(dir, binary string) string
}

// FileSystem answers file questions for wrappers.
// Implementations must be safe for concurrent use.
type FileSystem interface {
	// Exists checks if a file exists at the given path.
	Exists(path string) bool

	// ReadFile returns the file contents.
	ReadFile(path string) ([]byte, error)

	// Remove deletes a file. A missing file is not an error.
	Remove(path string) error
}
