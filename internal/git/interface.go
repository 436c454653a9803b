// Package git lists the files a change touches so fast runs can be limited
// to them.
package git

import "context"

// DiffOperations defines the git queries used to select files.
type DiffOperations interface {
	// ChangedFiles returns files changed in the working tree since base,
	// including staged changes. Deleted files are excluded.
	ChangedFiles(ctx context.Context, base string) ([]string, error)
	// ChangedFilesRelative returns files changed on HEAD relative to the
	// merge base with another ref (triple-dot diff).
	ChangedFilesRelative(ctx context.Context, relativeTo string) ([]string, error)
	// StagedFiles returns files in the index that differ from HEAD.
	StagedFiles(ctx context.Context) ([]string, error)
	// UntrackedFiles returns files git does not track and does not ignore.
	UntrackedFiles(ctx context.Context) ([]string, error)
}
