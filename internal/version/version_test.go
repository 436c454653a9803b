package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	if got := Get(); got == "" || strings.ContainsAny(got, " \n") {
		t.Errorf("Get() = %q, want a trimmed release", got)
	}
	if got := orDev(" \n"); got != "dev" {
		t.Errorf("orDev(blank) = %q, want dev", got)
	}
	if got := orDev("1.2.3\n"); got != "1.2.3" {
		t.Errorf("orDev() = %q, want 1.2.3", got)
	}
}

func TestBanner(t *testing.T) {
	b := Banner()
	if !strings.HasPrefix(b, "qacoord version "+Get()) || !strings.Contains(b, runtime.GOOS) {
		t.Errorf("Banner() = %q", b)
	}
}
