//go:build unix

package provisioner

import (
	"os/exec"
	"syscall"
)

// setProcessGroup makes cancellation kill the tool together with anything it
// spawned.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
