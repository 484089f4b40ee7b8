package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"railsnew/internal/command"
)

// WaitDelay is how long a cancelled process gets to exit after the interrupt
// before it is killed.
const WaitDelay = 5 * time.Second

// Process is a started subprocess.
type Process interface {
	// Stdin is the write end of a piped standard input, nil otherwise.
	Stdin() io.WriteCloser
	// Wait blocks until exit and returns the exit status. A non-zero status is
	// not an error; err reports a failure to wait at all.
	Wait() (int, error)
}

// Runner starts invocations.
type Runner interface {
	Start(ctx context.Context, inv command.Invocation) (Process, error)
}

// ExecRunner starts real processes. Inherited stdin and the output streams of
// every process are wired to the runner's fields.
type ExecRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner returns a runner attached to the current terminal.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

func (r *ExecRunner) Start(ctx context.Context, inv command.Invocation) (Process, error) {
	cmd := exec.CommandContext(ctx, inv.Program(), inv.Args()...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	setGracefulShutdown(cmd)
	cmd.WaitDelay = WaitDelay

	proc := &execProcess{cmd: cmd}

	switch inv.Stdin() {
	case command.StdinPiped:
		w, err := cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("failed to open stdin pipe: %w", err)
		}
		proc.stdin = w
	case command.StdinInherit:
		cmd.Stdin = r.Stdin
	}

	if err := cmd.Start(); err != nil {
		if proc.stdin != nil {
			proc.stdin.Close()
		}
		return nil, err
	}

	return proc, nil
}

type execProcess struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

func (p *execProcess) Stdin() io.WriteCloser {
	return p.stdin
}

func (p *execProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
