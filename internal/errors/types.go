package errors

import (
	"errors"
	"os/exec"
	"strconv"
)

var (
	ErrSpawnFailed    = errors.New("failed to start process")
	ErrPayloadWrite   = errors.New("failed to stream image definition")
	ErrPathResolution = errors.New("failed to resolve working directory")
	ErrBuildPhase     = errors.New("image build failed")
	ErrRunPhase       = errors.New("generator run failed")
	ErrConfigInvalid  = errors.New("configuration invalid")
	ErrRuntimeFailed  = errors.New("container runtime operation failed")
	ErrInterrupted    = errors.New("interrupted")
)

const (
	// ExitOrchestration is returned for failures that happen around the
	// subprocesses rather than inside them.
	ExitOrchestration = 125
	// ExitEngineNotFound is returned when the engine binary is missing.
	ExitEngineNotFound = 127
	// ExitInterrupted is the shell convention for termination by SIGINT.
	ExitInterrupted = 130
)

type RailsNewError struct {
	Type        error
	Context     string
	Cause       string
	Suggestion  string
	ExitCode    int
	OriginalErr error
}

func (e *RailsNewError) Error() string {
	if e.OriginalErr == nil {
		return e.Type.Error()
	}
	return e.OriginalErr.Error()
}

func (e *RailsNewError) Unwrap() error {
	return e.OriginalErr
}

// Is lets errors.Is match the error's Type sentinel.
func (e *RailsNewError) Is(target error) bool {
	return e.Type == target
}

func NewRailsNewError(errorType error, exitCode int, context, cause, suggestion string, originalErr error) *RailsNewError {
	if originalErr == nil {
		originalErr = errorType
	}
	return &RailsNewError{
		Type:        errorType,
		Context:     context,
		Cause:       cause,
		Suggestion:  suggestion,
		ExitCode:    exitCode,
		OriginalErr: originalErr,
	}
}

func NewSpawnError(program string, originalErr error) *RailsNewError {
	if errors.Is(originalErr, exec.ErrNotFound) {
		return NewRailsNewError(ErrSpawnFailed, ExitEngineNotFound,
			"Failed to start "+program,
			originalErr.Error(),
			"Install "+program+" or point --engine at an installed container engine",
			originalErr)
	}
	return NewRailsNewError(ErrSpawnFailed, ExitOrchestration,
		"Failed to start "+program,
		originalErr.Error(),
		"Check that "+program+" is executable by the current user",
		originalErr)
}

// NewInterruptedError reports that ctx was cancelled before or while action
// ran, e.g. by Ctrl-C.
func NewInterruptedError(action string, originalErr error) *RailsNewError {
	return NewRailsNewError(ErrInterrupted, ExitInterrupted,
		"Interrupted while "+action,
		originalErr.Error(),
		"",
		originalErr)
}

func NewPayloadWriteError(originalErr error) *RailsNewError {
	return NewRailsNewError(ErrPayloadWrite, ExitOrchestration,
		"Failed to stream the image definition to the build",
		originalErr.Error(),
		"",
		originalErr)
}

func NewPathResolutionError(originalErr error) *RailsNewError {
	return NewRailsNewError(ErrPathResolution, ExitOrchestration,
		"Failed to resolve the current directory",
		originalErr.Error(),
		"Make sure the current directory still exists and is readable",
		originalErr)
}

func NewBuildPhaseError(image string, exitCode int) *RailsNewError {
	return NewRailsNewError(ErrBuildPhase, exitCode,
		"Failed to build image "+image,
		exitStatusCause(exitCode),
		"Re-run with --rebuild to build the image from scratch",
		nil)
}

func NewRunPhaseError(image string, exitCode int) *RailsNewError {
	return NewRailsNewError(ErrRunPhase, exitCode,
		"rails new failed inside "+image,
		exitStatusCause(exitCode),
		"",
		nil)
}

func NewConfigError(context, cause, suggestion string, originalErr error) *RailsNewError {
	return NewRailsNewError(ErrConfigInvalid, ExitOrchestration, context, cause, suggestion, originalErr)
}

func NewRuntimeError(context, cause, suggestion string, originalErr error) *RailsNewError {
	return NewRailsNewError(ErrRuntimeFailed, ExitOrchestration, context, cause, suggestion, originalErr)
}

// ExitCode maps err to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var rnErr *RailsNewError
	if errors.As(err, &rnErr) && rnErr.ExitCode > 0 {
		return rnErr.ExitCode
	}
	return 1
}

func exitStatusCause(exitCode int) string {
	if exitCode < 0 {
		return "process was terminated by a signal"
	}
	return "process exited with status " + strconv.Itoa(exitCode)
}
