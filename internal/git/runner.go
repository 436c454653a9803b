package git

import (
	"context"
	"fmt"
	"slices"
	"strings"

	iexec "github.com/ShayCichocki/qacoord/internal/exec"
)

// Runner implements DiffOperations through a process runner.
type Runner struct {
	repoPath string
	proc     iexec.ProcessRunner
}

// NewRunner creates a git runner for the repository at the given path.
func NewRunner(repoPath string, proc iexec.ProcessRunner) *Runner {
	if proc == nil {
		proc = iexec.NewRunner()
	}
	return &Runner{repoPath: repoPath, proc: proc}
}

// run executes a git command and returns its trimmed stdout.
func (r *Runner) run(ctx context.Context, args ...string) (string, error) {
	res := r.proc.Execute(ctx, iexec.ProcessSpec{Binary: "git", Args: args, Dir: r.repoPath})
	if res.Err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), res.Err)
	}
	if !res.Success {
		return "", fmt.Errorf("git %s: exit code %d: %s", strings.Join(args, " "), res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return strings.TrimSpace(res.Stdout), nil
}

func (r *Runner) lines(ctx context.Context, args ...string) ([]string, error) {
	out, err := r.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// ChangedFiles returns files changed since base, including staged changes.
func (r *Runner) ChangedFiles(ctx context.Context, base string) ([]string, error) {
	return r.lines(ctx, "diff", "--name-only", "--diff-filter=ACMR", base)
}

// ChangedFilesRelative returns files changed on HEAD relative to another ref.
func (r *Runner) ChangedFilesRelative(ctx context.Context, relativeTo string) ([]string, error) {
	return r.lines(ctx, "diff", "--name-only", "--diff-filter=ACMR", relativeTo+"...HEAD")
}

// StagedFiles returns files in the index that differ from HEAD.
func (r *Runner) StagedFiles(ctx context.Context) ([]string, error) {
	return r.lines(ctx, "diff", "--name-only", "--cached", "--diff-filter=ACMR")
}

// UntrackedFiles returns untracked, non-ignored files.
func (r *Runner) UntrackedFiles(ctx context.Context) ([]string, error) {
	return r.lines(ctx, "ls-files", "--others", "--exclude-standard")
}

// Selection names which changed-file query to run.
type Selection struct {
	// Base selects files changed since this ref; "" skips it.
	Base string
	// Staged selects only staged files.
	Staged bool
	// Untracked adds untracked files to the working-tree selection.
	Untracked bool
}

// Select runs the queries of sel and returns the sorted, de-duplicated union.
func Select(ctx context.Context, ops DiffOperations, sel Selection) ([]string, error) {
	var out []string
	if sel.Staged {
		files, err := ops.StagedFiles(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	if sel.Base != "" {
		files, err := ops.ChangedFiles(ctx, sel.Base)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	if sel.Untracked {
		files, err := ops.UntrackedFiles(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

var _ DiffOperations = (*Runner)(nil)
