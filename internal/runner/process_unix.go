//go:build !windows

package runner

import (
	"os/exec"
	"syscall"
)

// prepareCommand puts the script in its own process group so that the
// commands it spawns are signalled with it.
func prepareCommand(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func signalTerm(cmd *exec.Cmd) {
	signalGroup(cmd, syscall.SIGTERM)
}

func signalKill(cmd *exec.Cmd) {
	signalGroup(cmd, syscall.SIGKILL)
	_ = cmd.Process.Kill()
}

func signalGroup(cmd *exec.Cmd, sig syscall.Signal) {
	pid := cmd.Process.Pid
	pgid, err := syscall.Getpgid(pid)
	if err != nil || pgid <= 0 {
		_ = cmd.Process.Signal(sig)
		return
	}
	_ = syscall.Kill(-pgid, sig)
}
