//go:build !windows

package exec

import (
	"os/exec"
	"syscall"
)

// configureProcessGroup starts the child in its own process group and makes
// context cancellation kill the whole group, so grandchildren spawned by
// npx or shell shims do not outlive the tool.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
