//go:build unix

package orchestrator

import (
	"os/exec"
	"syscall"
)

// setGracefulShutdown interrupts the child on cancellation so the engine can
// stop its container before exiting.
func setGracefulShutdown(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGINT)
	}
}
