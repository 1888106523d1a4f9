//go:build windows

package process

import (
	"os/exec"
	"syscall"
)

// hideWindow keeps silent installs from flashing console windows.
func hideWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
}
