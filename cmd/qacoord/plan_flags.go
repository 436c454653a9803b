package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/qacoord/internal/git"
	"github.com/ShayCichocki/qacoord/internal/wrappers"
	"github.com/ShayCichocki/qacoord/pkg/models"
)

// planFlags select tools when no plan file is given.
type planFlags struct {
	dimensions []string
	scopes     []string
	mode       string
	files      []string
	required   []string
	changed    string
	staged     bool
	untracked  bool
}

func (f *planFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.dimensions, "dimension", "d", nil, "Dimensions to run (format, lint, security, test, build, data); default all")
	cmd.Flags().StringSliceVarP(&f.scopes, "scope", "s", nil, "Scopes to run (frontend, backend, infrastructure, api, all); default all")
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "", "Run mode (fast or full)")
	cmd.Flags().StringSliceVar(&f.files, "files", nil, "Restrict file-based tools to these files")
	cmd.Flags().StringSliceVar(&f.required, "require", nil, "Tools whose absence fails the run")
	cmd.Flags().StringVar(&f.changed, "changed", "", "Only check files changed since this git ref")
	cmd.Flags().BoolVar(&f.staged, "staged", false, "Only check files staged for commit")
	cmd.Flags().BoolVar(&f.untracked, "untracked", false, "Also check untracked files (with --changed)")
}

// build loads the plan file at path, or expands the flag selection
// through the configured tools schema.
func (f *planFlags) build(ctx context.Context, e *env, path string, ops git.DiffOperations) (*models.ExecutionPlan, error) {
	var plan *models.ExecutionPlan
	if path != "" {
		p, err := models.LoadPlan(path)
		if err != nil {
			return nil, err
		}
		plan = p
	} else {
		schema := e.cfg.Schema()
		if err := schema.Validate(wrappers.DefaultRegistry().Has); err != nil {
			return nil, fmt.Errorf("invalid tools schema: %w", err)
		}
		dims := make([]models.Dimension, 0, len(f.dimensions))
		for _, d := range f.dimensions {
			dim := models.Dimension(d)
			if !dim.Valid() {
				return nil, fmt.Errorf("unknown dimension %q", d)
			}
			dims = append(dims, dim)
		}
		scopes := make([]models.Scope, 0, len(f.scopes))
		for _, s := range f.scopes {
			scope := models.Scope(s)
			if !scope.Valid() {
				return nil, fmt.Errorf("unknown scope %q", s)
			}
			scopes = append(scopes, scope)
		}
		plan = &models.ExecutionPlan{Tools: schema.Requests(dims, scopes, "")}
	}

	if plan.Root == "" {
		plan.Root = e.root
	}
	if f.mode != "" {
		plan.Mode = models.Mode(f.mode)
	}
	if len(f.files) > 0 {
		plan.Files = f.files
	}
	if f.changed != "" || f.staged {
		if ops == nil {
			ops = git.NewRunner(plan.Root, nil)
		}
		files, err := git.Select(ctx, ops, git.Selection{Base: f.changed, Staged: f.staged, Untracked: f.untracked})
		if err != nil {
			return nil, fmt.Errorf("select changed files: %w", err)
		}
		if len(files) == 0 {
			e.log.Warn("no changed files, file-based tools will be no-ops")
		}
		plan.Files = append(plan.Files, files...)
		plan.FilesOnly = true
	}
	for i := range plan.Tools {
		for _, name := range f.required {
			if plan.Tools[i].Name == name {
				plan.Tools[i].Required = true
			}
		}
	}
	return plan, nil
}
