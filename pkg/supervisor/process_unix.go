//go:build unix

package supervisor

import (
	"errors"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

func shellCommand(path string) *exec.Cmd {
	return exec.Command("/bin/sh", "-c", path)
}

// configureProcessGroup puts the producer into its own process group so that the
// whole tree, including children spawned by a wrapper script, can be signalled at once.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(cmd *exec.Cmd) error {
	err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}
