//go:build windows

package runner

import "os/exec"

func prepareCommand(cmd *exec.Cmd) {}

// Windows has no SIGTERM; both stages kill the process.
func signalTerm(cmd *exec.Cmd) {
	_ = cmd.Process.Kill()
}

func signalKill(cmd *exec.Cmd) {
	_ = cmd.Process.Kill()
}
