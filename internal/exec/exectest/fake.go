// Package exectest provides in-memory ProcessRunner and FileSystem fakes.
package exectest

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	iexec "github.com/ShayCichocki/qacoord/internal/exec"
)

// Response is a canned process outcome.
type Response struct {
	ExitCode int
	Stdout   string
	Stderr   string
	// Err simulates a spawn failure.
	Err error
	// Delay holds the call until it elapses or ctx is done.
	Delay time.Duration
	// Effect runs when the process completes, e.g. to write output files.
	Effect func()
}

// Runner is a ProcessRunner that replays canned responses keyed by
// "binary arg0 arg1...". The longest matching key prefix wins.
type Runner struct {
	mu        sync.Mutex
	responses map[string]Response
	missing   map[string]bool
	calls     []iexec.ProcessSpec
}

// NewRunner creates an empty fake runner. Every binary is available unless
// marked with Missing.
func NewRunner() *Runner {
	return &Runner{
		responses: make(map[string]Response),
		missing:   make(map[string]bool),
	}
}

// On registers a response for invocations whose command line starts with key.
func (r *Runner) On(key string, resp Response) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[key] = resp
	return r
}

// Missing marks a binary as not installed.
func (r *Runner) Missing(binary string) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.missing[binary] = true
	return r
}

// Calls returns a copy of every recorded invocation.
func (r *Runner) Calls() []iexec.ProcessSpec {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]iexec.ProcessSpec(nil), r.calls...)
}

// CallsTo returns the invocations of a single binary.
func (r *Runner) CallsTo(binary string) []iexec.ProcessSpec {
	var out []iexec.ProcessSpec
	for _, c := range r.Calls() {
		if c.Binary == binary {
			out = append(out, c)
		}
	}
	return out
}

// Execute implements iexec.ProcessRunner.
func (r *Runner) Execute(ctx context.Context, spec iexec.ProcessSpec) *iexec.ProcessResult {
	r.mu.Lock()
	r.calls = append(r.calls, spec)
	missing := r.missing[spec.Binary]
	resp, found := r.match(spec)
	r.mu.Unlock()

	if missing {
		return &iexec.ProcessResult{ExitCode: -1, Err: errors.New("executable file not found in $PATH")}
	}
	if !found {
		resp = Response{}
	}

	if resp.Delay > 0 {
		timer := time.NewTimer(resp.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			res := &iexec.ProcessResult{ExitCode: -1, Duration: resp.Delay}
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				res.TimedOut = true
			} else {
				res.Cancelled = true
			}
			return res
		}
	}

	if resp.Err != nil {
		return &iexec.ProcessResult{ExitCode: -1, Err: resp.Err}
	}
	if resp.Effect != nil {
		resp.Effect()
	}
	return &iexec.ProcessResult{
		Success:  resp.ExitCode == 0,
		ExitCode: resp.ExitCode,
		Stdout:   resp.Stdout,
		Stderr:   resp.Stderr,
		Duration: time.Millisecond,
	}
}

// LookPath implements iexec.ProcessRunner.
func (r *Runner) LookPath(dir, binary string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.missing[binary] {
		return ""
	}
	return "/usr/bin/" + binary
}

func (r *Runner) match(spec iexec.ProcessSpec) (Response, bool) {
	line := strings.Join(append([]string{spec.Binary}, spec.Args...), " ")
	bestLen := -1
	var best Response
	for key, resp := range r.responses {
		if strings.HasPrefix(line, key) && len(key) > bestLen {
			best, bestLen = resp, len(key)
		}
	}
	return best, bestLen >= 0
}

// FS is an in-memory FileSystem.
type FS struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewFS creates a file system holding the given path -> content entries.
func NewFS(files map[string]string) *FS {
	fs := &FS{files: make(map[string][]byte)}
	for p, c := range files {
		fs.files[p] = []byte(c)
	}
	return fs
}

// Put adds or replaces a file.
func (f *FS) Put(path, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = []byte(content)
}

// Exists implements iexec.FileSystem. A path is a directory when some
// file lives below it.
func (f *FS) Exists(path string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if _, ok := f.files[path]; ok {
		return true
	}
	dir := strings.TrimSuffix(path, "/") + "/"
	for p := range f.files {
		if strings.HasPrefix(p, dir) {
			return true
		}
	}
	return false
}

// ReadFile implements iexec.FileSystem.
func (f *FS) ReadFile(path string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	data, ok := f.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return append([]byte(nil), data...), nil
}

// Remove implements iexec.FileSystem.
func (f *FS) Remove(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, path)
	return nil
}

var (
	_ iexec.ProcessRunner = (*Runner)(nil)
	_ iexec.FileSystem    = (*FS)(nil)
)
