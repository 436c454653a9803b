package git

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/ShayCichocki/qacoord/internal/exec/exectest"
)

func TestRunner_ChangedFiles(t *testing.T) {
	proc := exectest.NewRunner().
		On("git diff --name-only --diff-filter=ACMR main", exectest.Response{Stdout: "web/app.ts\napi/main.py\n"})
	r := NewRunner("/repo", proc)

	got, err := r.ChangedFiles(context.Background(), "main")
	if err != nil {
		t.Fatalf("ChangedFiles() error = %v", err)
	}
	if !slices.Equal(got, []string{"web/app.ts", "api/main.py"}) {
		t.Errorf("ChangedFiles() = %v", got)
	}
	calls := proc.CallsTo("git")
	if len(calls) != 1 || calls[0].Dir != "/repo" {
		t.Errorf("calls = %+v", calls)
	}
}

func TestRunner_EmptyOutput(t *testing.T) {
	r := NewRunner("/repo", exectest.NewRunner())
	got, err := r.StagedFiles(context.Background())
	if err != nil || got != nil {
		t.Errorf("StagedFiles() = %v, %v; want nil, nil", got, err)
	}
}

func TestRunner_Failure(t *testing.T) {
	proc := exectest.NewRunner().
		On("git diff", exectest.Response{ExitCode: 128, Stderr: "fatal: not a git repository\n"})
	r := NewRunner("/repo", proc)

	_, err := r.ChangedFilesRelative(context.Background(), "origin/main")
	if err == nil || !strings.Contains(err.Error(), "not a git repository") {
		t.Errorf("error = %v, want git stderr in message", err)
	}
}

func TestRunner_MissingGit(t *testing.T) {
	r := NewRunner("/repo", exectest.NewRunner().Missing("git"))
	if _, err := r.UntrackedFiles(context.Background()); err == nil {
		t.Error("expected error when git is missing")
	}
}

func TestSelect_Union(t *testing.T) {
	proc := exectest.NewRunner().
		On("git diff --name-only --cached", exectest.Response{Stdout: "b.py\na.py\n"}).
		On("git diff --name-only --diff-filter=ACMR HEAD", exectest.Response{Stdout: "a.py\nc.ts\n"}).
		On("git ls-files --others", exectest.Response{Stdout: "new.go\n"})
	r := NewRunner("/repo", proc)

	got, err := Select(context.Background(), r, Selection{Base: "HEAD", Staged: true, Untracked: true})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	want := []string{"a.py", "b.py", "c.ts", "new.go"}
	if !slices.Equal(got, want) {
		t.Errorf("Select() = %v, want %v", got, want)
	}
}

func TestSelect_Nothing(t *testing.T) {
	got, err := Select(context.Background(), NewRunner("/repo", exectest.NewRunner()), Selection{})
	if err != nil || len(got) != 0 {
		t.Errorf("Select() = %v, %v", got, err)
	}
}
