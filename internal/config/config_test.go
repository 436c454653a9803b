package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ShayCichocki/qacoord/pkg/models"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Execution.DefaultTimeout != 5*time.Minute {
		t.Errorf("expected default timeout 5m, got %v", cfg.Execution.DefaultTimeout)
	}
	if cfg.Execution.MaxParallel != 0 {
		t.Errorf("expected unlimited parallelism, got %d", cfg.Execution.MaxParallel)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level info, got %q", cfg.Logging.Level)
	}
	if !cfg.History.Enabled {
		t.Error("expected history to be enabled")
	}
	if paths := cfg.Scopes["frontend"].Paths; len(paths) == 0 || paths[0] != "frontend" {
		t.Errorf("unexpected frontend paths %v", paths)
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
execution:
  default_timeout: 90s
  max_parallel: 2
  stop_on_critical: true
logging:
  level: debug
tools:
  lint:
    frontend: [eslint, prettier]
wrappers:
  eslint:
    args: ["--max-warnings", "0"]
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}

	if cfg.Execution.DefaultTimeout != 90*time.Second {
		t.Errorf("default_timeout = %v, want 90s", cfg.Execution.DefaultTimeout)
	}
	if cfg.Execution.MaxParallel != 2 || !cfg.Execution.StopOnCritical {
		t.Errorf("unexpected execution config %+v", cfg.Execution)
	}

	acc := cfg.Accessor()
	if got := acc.GetStringSlice("wrappers.eslint.args", nil); len(got) != 2 || got[0] != "--max-warnings" {
		t.Errorf("wrappers.eslint.args = %v", got)
	}
	if got := acc.GetString("logging.level", ""); got != "debug" {
		t.Errorf("logging.level = %q", got)
	}
	// Defaults survive alongside overrides.
	if got := acc.GetStringSlice("wrappers.semgrep.scopes.backend", nil); len(got) != 1 || got[0] != "p/python" {
		t.Errorf("wrappers.semgrep.scopes.backend = %v", got)
	}

	schema := cfg.Schema()
	if got := schema[models.DimensionLint][models.ScopeFrontend]; len(got) != 2 || got[1] != "prettier" {
		t.Errorf("overridden lint/frontend = %v", got)
	}
	if got := schema[models.DimensionLint][models.ScopeBackend]; len(got) != 1 || got[0] != "ruff" {
		t.Errorf("default lint/backend lost after merge: %v", got)
	}
}

func TestLoadFromPath_Missing(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestStore_GetDefaults(t *testing.T) {
	acc := Default().Accessor()

	if got := acc.Get("does.not.exist", "fallback"); got != "fallback" {
		t.Errorf("Get() = %v, want fallback", got)
	}
	if got := acc.GetInt("does.not.exist", 7); got != 7 {
		t.Errorf("GetInt() = %d, want 7", got)
	}
	if got := acc.GetBool("does.not.exist", true); !got {
		t.Error("GetBool() = false, want true")
	}
	if got := acc.GetDuration("execution.default_timeout", 0); got != 5*time.Minute {
		t.Errorf("GetDuration() = %v", got)
	}
}

func TestFromMap(t *testing.T) {
	cfg, err := FromMap(map[string]any{
		"execution": map[string]any{"max_parallel": 3},
	})
	if err != nil {
		t.Fatalf("FromMap() error = %v", err)
	}
	if cfg.Execution.MaxParallel != 3 {
		t.Errorf("max_parallel = %d, want 3", cfg.Execution.MaxParallel)
	}
	if cfg.Execution.DefaultTimeout != 5*time.Minute {
		t.Errorf("default timeout lost: %v", cfg.Execution.DefaultTimeout)
	}
}

func TestToolSchema_Validate(t *testing.T) {
	known := func(name string) bool { return name == "eslint" || name == "ruff" }

	good := ToolSchema{
		models.DimensionLint: {models.ScopeFrontend: {"eslint"}, models.ScopeBackend: {"ruff"}},
	}
	if err := good.Validate(known); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	bad := ToolSchema{
		models.Dimension("style"): {models.ScopeFrontend: {"eslint"}},
		models.DimensionLint:      {models.Scope("mobile"): {"eslint"}, models.ScopeBackend: {"pylint"}},
	}
	err := bad.Validate(known)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"unknown dimension", "unknown scope", `unknown tool "pylint"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestToolSchema_Requests(t *testing.T) {
	schema := ToolSchema{
		models.DimensionSecurity: {models.ScopeAll: {"semgrep"}},
		models.DimensionLint: {
			models.ScopeFrontend: {"eslint"},
			models.ScopeBackend:  {"ruff"},
		},
	}

	reqs := schema.Requests([]models.Dimension{models.DimensionLint, models.DimensionSecurity}, nil, models.ModeFast)
	var names []string
	for _, r := range reqs {
		names = append(names, r.Name)
	}
	if got := strings.Join(names, ","); got != "eslint,ruff,semgrep" {
		t.Errorf("Requests() order = %s", got)
	}

	frontendOnly := schema.Requests(nil, []models.Scope{models.ScopeFrontend}, models.ModeFull)
	if len(frontendOnly) != 1 || frontendOnly[0].Name != "eslint" || frontendOnly[0].Mode != models.ModeFull {
		t.Errorf("frontend Requests() = %+v", frontendOnly)
	}
}

func TestDefaultSchemaIsValid(t *testing.T) {
	names := map[string]bool{
		"eslint": true, "prettier": true, "ruff": true, "black": true, "pytest": true,
		"semgrep": true, "snyk": true, "spectral": true, "megalinter": true, "build": true, "data": true,
	}
	if err := Default().Schema().Validate(func(n string) bool { return names[n] }); err != nil {
		t.Errorf("default schema invalid: %v", err)
	}
}
