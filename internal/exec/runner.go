package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"
)

// DefaultWaitDelay bounds how long Execute waits for output pipes to drain
// after the process has been killed.
const DefaultWaitDelay = 2 * time.Second

// OSRunner implements ProcessRunner using os/exec.
type OSRunner struct {
	waitDelay time.Duration
}

// NewRunner creates a new OSRunner.
func NewRunner() *OSRunner {
	return &OSRunner{waitDelay: DefaultWaitDelay}
}

// Execute runs the process described by spec.
func (r *OSRunner) Execute(ctx context.Context, spec ProcessSpec) *ProcessResult {
	result := &ProcessResult{ExitCode: -1}
	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
	}()

	if spec.Binary == "" {
		result.Err = errors.New("empty binary")
		return result
	}

	binary := spec.Binary
	if resolved := r.LookPath(spec.Dir, spec.Binary); resolved != "" {
		binary = resolved
	}

	cmd := exec.CommandContext(ctx, binary, spec.Args...)
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	configureProcessGroup(cmd)
	cmd.WaitDelay = r.waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		result.TimedOut = true
		return result
	case errors.Is(ctx.Err(), context.Canceled):
		result.Cancelled = true
		return result
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result
		}
		result.Err = fmt.Errorf("run %s: %w", spec.Binary, err)
		return result
	}

	result.ExitCode = 0
	result.Success = true
	return result
}

// LookPath resolves binary, preferring project-local installs
// (node_modules/.bin, .venv/bin) over PATH.
func (r *OSRunner) LookPath(dir, binary string) string {
	if filepath.IsAbs(binary) || filepath.Base(binary) != binary {
		if _, err := os.Stat(binary); err == nil {
			return binary
		}
		return ""
	}

	if dir != "" {
		candidates := []string{
			filepath.Join(dir, "node_modules", ".bin", binary),
			filepath.Join(dir, ".venv", "bin", binary),
		}
		if runtime.GOOS == "windows" {
			candidates = append(candidates,
				filepath.Join(dir, "node_modules", ".bin", binary+".cmd"),
				filepath.Join(dir, ".venv", "Scripts", binary+".exe"),
			)
		}
		for _, c := range candidates {
			if info, err := os.Stat(c); err == nil && !info.IsDir() {
				return c
			}
		}
	}

	path, err := exec.LookPath(binary)
	if err != nil {
		return ""
	}
	return path
}

// OSFileSystem implements FileSystem over the local disk.
type OSFileSystem struct {
	root string
}

// NewFileSystem creates an OSFileSystem resolving relative paths against root.
func NewFileSystem(root string) *OSFileSystem {
	return &OSFileSystem{root: root}
}

// Exists checks if a file exists at the given path.
func (f *OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(f.resolve(path))
	return err == nil
}

// ReadFile returns the file contents.
func (f *OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(f.resolve(path))
}

// Remove deletes a file, ignoring one that does not exist.
func (f *OSFileSystem) Remove(path string) error {
	if err := os.Remove(f.resolve(path)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (f *OSFileSystem) resolve(path string) string {
	if f.root == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(f.root, path)
}

// Verify implementations at compile time.
var (
	_ ProcessRunner = (*OSRunner)(nil)
	_ FileSystem    = (*OSFileSystem)(nil)
)
