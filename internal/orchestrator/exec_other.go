//go:build !unix

package orchestrator

import "os/exec"

func setGracefulShutdown(cmd *exec.Cmd) {
	// cmd.Cancel defaults to os.Process.Kill.
}
