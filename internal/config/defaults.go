package config

import "github.com/spf13/viper"

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	// Execution defaults
	v.SetDefault("execution.default_timeout", "5m")
	v.SetDefault("execution.max_parallel", 0)
	v.SetDefault("execution.stop_on_critical", false)
	v.SetDefault("execution.sequential_dimensions", []string{})
	v.SetDefault("execution.order", "first_seen")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", false)

	// History defaults
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "")

	// Scope -> path prefixes used when collecting files
	v.SetDefault("scopes", map[string]any{
		"frontend":       map[string]any{"paths": []string{"frontend", "web", "client", "src"}},
		"backend":        map[string]any{"paths": []string{"backend", "server", "api", "app"}},
		"infrastructure": map[string]any{"paths": []string{"infrastructure", "infra", "deploy", "terraform"}},
		"api":            map[string]any{"paths": []string{"api", "openapi", "docs/api"}},
		"all":            map[string]any{"paths": []string{}},
	})

	// Dimension -> scope -> tools
	v.SetDefault("tools", map[string]any{
		"format": map[string]any{
			"frontend": []string{"prettier"},
			"backend":  []string{"black"},
		},
		"lint": map[string]any{
			"frontend": []string{"eslint"},
			"backend":  []string{"ruff"},
			"api":      []string{"spectral"},
			"all":      []string{"megalinter"},
		},
		"security": map[string]any{
			"all": []string{"semgrep", "snyk"},
		},
		"test": map[string]any{
			"backend": []string{"pytest"},
		},
		"build": map[string]any{
			"frontend": []string{"build"},
			"backend":  []string{"build"},
		},
		"data": map[string]any{
			"frontend": []string{"data"},
			"backend":  []string{"data"},
		},
	})

	// Orchestrator-style wrappers: scope -> actions
	v.SetDefault("wrappers.semgrep.scopes", map[string]any{
		"frontend":       []string{"p/javascript", "p/typescript"},
		"backend":        []string{"p/python"},
		"infrastructure": []string{"p/terraform", "p/dockerfile"},
		"api":            []string{"p/owasp-top-ten"},
		"all":            []string{"p/default"},
	})
	v.SetDefault("wrappers.snyk.scopes", map[string]any{
		"frontend":       []string{"test", "code"},
		"backend":        []string{"test", "code"},
		"infrastructure": []string{"iac"},
		"api":            []string{"code"},
		"all":            []string{"test", "code"},
	})
	v.SetDefault("wrappers.snyk.severity_threshold", "high")
	v.SetDefault("wrappers.spectral.documents", []string{"openapi.yaml", "openapi.json", "docs/api/openapi.yaml"})
	v.SetDefault("wrappers.megalinter.flavor", "")
	v.SetDefault("wrappers.megalinter.report", "megalinter-reports/mega-linter-report.json")
	v.SetDefault("wrappers.build.scopes", map[string]any{
		"frontend":       []string{"npm run build"},
		"backend":        []string{"python -m compileall -q ."},
		"infrastructure": []string{"terraform validate"},
		"all":            []string{"npm run build", "python -m compileall -q ."},
	})
	v.SetDefault("wrappers.data.scopes", map[string]any{
		"frontend": []string{"npm-ls"},
		"backend":  []string{"pip-check"},
		"all":      []string{"npm-ls", "pip-check"},
	})
	v.SetDefault("wrappers.pytest.args", []string{})
	v.SetDefault("wrappers.eslint.args", []string{})
}
