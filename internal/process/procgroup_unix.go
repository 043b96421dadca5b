//go:build unix

package process

import (
	"os/exec"
	"syscall"
)

// killProcessGroup starts the plugin in its own process group and makes
// cancellation kill the whole group, so children forked by wrapper scripts
// die with the plugin instead of holding stdout open.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
}
