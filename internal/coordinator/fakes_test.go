package coordinator

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ShayCichocki/qacoord/internal/wrappers"
	"github.com/ShayCichocki/qacoord/pkg/models"
)

// fakeWrapper is a scriptable wrapper of either kind.
type fakeWrapper struct {
	name        string
	kind        wrappers.Kind
	dims        []models.Dimension
	scopes      []models.Scope
	unavailable bool
	run         func(ctx context.Context, files []string, opts wrappers.Options) *models.ToolResult

	calls  atomic.Int32
	probes atomic.Int32
	files  atomic.Value
}

func newFake(name string, dims ...models.Dimension) *fakeWrapper {
	return &fakeWrapper{name: name, kind: wrappers.KindConfigBased, dims: dims}
}

func (f *fakeWrapper) Name() string                            { return f.name }
func (f *fakeWrapper) Kind() wrappers.Kind                     { return f.kind }
func (f *fakeWrapper) Dimensions() []models.Dimension          { return f.dims }
func (f *fakeWrapper) Policy() wrappers.ExitPolicy             { return wrappers.LintStyle }
func (f *fakeWrapper) Extensions() []string                    { return []string{".ts"} }
func (f *fakeWrapper) Version(context.Context) (string, error) { return "1.0.0", nil }

func (f *fakeWrapper) Scopes() []models.Scope {
	if f.scopes == nil {
		return models.AllScopes
	}
	return f.scopes
}

func (f *fakeWrapper) IsAvailable(context.Context) bool {
	f.probes.Add(1)
	return !f.unavailable
}

func (f *fakeWrapper) ExecuteFiles(ctx context.Context, files []string, opts wrappers.Options) *models.ToolResult {
	f.files.Store(files)
	return f.ExecuteRequest(ctx, opts)
}

func (f *fakeWrapper) ExecuteRequest(ctx context.Context, opts wrappers.Options) *models.ToolResult {
	f.calls.Add(1)
	if f.run != nil {
		return f.run(ctx, nil, opts)
	}
	return result(opts.Request, true)
}

func registryOf(fakes ...*fakeWrapper) wrappers.Registry {
	reg := wrappers.Registry{}
	for _, f := range fakes {
		reg[f.name] = func(wrappers.Deps) wrappers.Wrapper { return f }
	}
	return reg
}

// result builds a finished result with the given violations.
func result(req models.ToolRequest, ran bool, violations ...models.Violation) *models.ToolResult {
	res := &models.ToolResult{
		Tool:          req.Name,
		Dimension:     req.Dimension,
		Scope:         req.Scope,
		Success:       ran,
		ExecutionTime: models.Millis(time.Millisecond),
		Violations:    violations,
		Timestamp:     time.Unix(0, 0),
	}
	if !ran {
		res.Error = "exited with code 2"
		res.Errors = append(res.Errors, models.Message{Text: res.Error})
	}
	for _, v := range violations {
		msg := models.Message{Text: v.Message}
		if v.Severity == models.SeverityError {
			res.Success = false
			res.Errors = append(res.Errors, msg)
		} else {
			res.Warnings = append(res.Warnings, msg)
		}
	}
	res.Status = res.DeriveStatus()
	return res
}

func violation(sev models.Severity, msg string) models.Violation {
	return models.Violation{File: "a.ts", Line: 1, Column: 1, Severity: sev, Message: msg, Rule: "rule"}
}

func req(name string, dim models.Dimension) models.ToolRequest {
	return models.ToolRequest{Name: name, Dimension: dim, Scope: models.ScopeAll}
}
