// Package version exposes the qacoord release embedded at build time.
package version

import (
	_ "embed"
	"runtime"
	"strings"
)

//go:embed VERSION
var versionContent string

// Get returns the embedded release, or "dev" when the VERSION file is empty.
func Get() string {
	return orDev(versionContent)
}

// Banner is the line printed by the version command.
func Banner() string {
	return "qacoord version " + Get() + " (" + runtime.Version() + " " + runtime.GOOS + "/" + runtime.GOARCH + ")"
}

func orDev(s string) string {
	if v := strings.TrimSpace(s); v != "" {
		return v
	}
	return "dev"
}
