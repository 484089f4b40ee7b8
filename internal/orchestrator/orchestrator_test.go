package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"railsnew/internal/command"
	rnerrors "railsnew/internal/errors"
)

// MockRunner is a mock implementation of the Runner interface
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Start(ctx context.Context, inv command.Invocation) (Process, error) {
	args := m.Called(ctx, inv)
	proc, _ := args.Get(0).(Process)
	return proc, args.Error(1)
}

// pipedProcess behaves like a build that only exits after it has consumed its
// stdin, so a writer that is not concurrent with Wait would block forever.
type pipedProcess struct {
	r        *io.PipeReader
	w        *io.PipeWriter
	received bytes.Buffer
	exitCode int
	// breakPipe makes the process exit without reading its input.
	breakPipe bool
}

func newPipedProcess(exitCode int) *pipedProcess {
	r, w := io.Pipe()
	return &pipedProcess{r: r, w: w, exitCode: exitCode}
}

func (p *pipedProcess) Stdin() io.WriteCloser {
	return p.w
}

func (p *pipedProcess) Wait() (int, error) {
	if p.breakPipe {
		p.r.CloseWithError(errors.New("broken pipe"))
		return p.exitCode, nil
	}
	if _, err := io.Copy(&p.received, p.r); err != nil {
		return -1, err
	}
	return p.exitCode, nil
}

type exitProcess struct {
	exitCode int
	waitErr  error
}

func (p *exitProcess) Stdin() io.WriteCloser {
	return nil
}

func (p *exitProcess) Wait() (int, error) {
	return p.exitCode, p.waitErr
}

type fakePlatform struct {
	name     string
	payload  []byte
	identity bool
}

func (f *fakePlatform) Name() string       { return f.name }
func (f *fakePlatform) Dockerfile() []byte { return f.payload }
func (f *fakePlatform) Identity() (int, int, bool) {
	if !f.identity {
		return 0, 0, false
	}
	return 1000, 1000, true
}

func unixLike(payload []byte) *fakePlatform {
	return &fakePlatform{name: "unix", payload: payload, identity: true}
}

func isBuild(inv command.Invocation) bool {
	return inv.Args()[0] == "build"
}

func isRun(inv command.Invocation) bool {
	return inv.Args()[0] == "run"
}

func staticWorkdir(dir string, calls *int) WorkdirResolver {
	return func() (string, error) {
		*calls++
		return dir, nil
	}
}

func defaultRequest() Request {
	return Request{
		RubyVersion:   "3.2.3",
		RailsVersion:  "7.1.3",
		GeneratorArgs: []string{"my_app"},
	}
}

func TestExecute_Success(t *testing.T) {
	payload := bytes.Repeat([]byte("FROM ruby\n"), 64*1024)
	build := newPipedProcess(0)
	runner := &MockRunner{}
	runner.On("Start", mock.Anything, mock.MatchedBy(isBuild)).Return(build, nil).Once()
	runner.On("Start", mock.Anything, mock.MatchedBy(isRun)).Return(&exitProcess{}, nil).Once()

	var resolves int
	o := New(command.Builder{}, unixLike(payload), runner, staticWorkdir("/work", &resolves))

	code, err := o.Execute(context.Background(), defaultRequest())

	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, StateDone, o.State())
	assert.Equal(t, payload, build.received.Bytes())
	assert.Equal(t, 1, resolves)

	buildInv := runner.Calls[0].Arguments.Get(1).(command.Invocation)
	assert.Equal(t, []string{
		"build",
		"--build-arg", "RUNTIME_VERSION=3.2.3",
		"--build-arg", "FRAMEWORK_VERSION=7.1.3",
		"--build-arg", "USER_ID=1000",
		"--build-arg", "GROUP_ID=1000",
		"-t", "rails-new-3.2.3-7.1.3",
		"-",
	}, buildInv.Args())

	runInv := runner.Calls[1].Arguments.Get(1).(command.Invocation)
	assert.Equal(t, []string{
		"run", "--rm",
		"-v", "/work:/work",
		"-w", "/work",
		"rails-new-3.2.3-7.1.3",
		"rails", "new", "my_app",
	}, runInv.Args())
	assert.Equal(t, command.StdinInherit, runInv.Stdin())

	runner.AssertExpectations(t)
}

func TestExecute_BuildFailureSkipsRun(t *testing.T) {
	runner := &MockRunner{}
	runner.On("Start", mock.Anything, mock.MatchedBy(isBuild)).Return(newPipedProcess(3), nil).Once()

	var resolves int
	o := New(command.Builder{}, unixLike([]byte("FROM ruby")), runner, staticWorkdir("/work", &resolves))

	code, err := o.Execute(context.Background(), defaultRequest())

	require.Error(t, err)
	assert.True(t, errors.Is(err, rnerrors.ErrBuildPhase))
	assert.Equal(t, 3, code)
	assert.Equal(t, StateErrorExit, o.State())
	assert.Equal(t, 0, resolves, "run invocation must not be constructed")
	runner.AssertNumberOfCalls(t, "Start", 1)
	runner.AssertNotCalled(t, "Start", mock.Anything, mock.MatchedBy(isRun))
}

func TestExecute_BuildFailureWithBrokenPipe(t *testing.T) {
	build := newPipedProcess(1)
	build.breakPipe = true
	runner := &MockRunner{}
	runner.On("Start", mock.Anything, mock.MatchedBy(isBuild)).Return(build, nil).Once()

	var resolves int
	o := New(command.Builder{}, unixLike([]byte("FROM ruby")), runner, staticWorkdir("/work", &resolves))

	code, err := o.Execute(context.Background(), defaultRequest())

	assert.True(t, errors.Is(err, rnerrors.ErrBuildPhase), "build exit status takes precedence: %v", err)
	assert.Equal(t, 1, code)
	runner.AssertNumberOfCalls(t, "Start", 1)
}

func TestExecute_PayloadWriteFailure(t *testing.T) {
	build := newPipedProcess(0)
	build.breakPipe = true
	runner := &MockRunner{}
	runner.On("Start", mock.Anything, mock.MatchedBy(isBuild)).Return(build, nil).Once()

	var resolves int
	o := New(command.Builder{}, unixLike([]byte("FROM ruby")), runner, staticWorkdir("/work", &resolves))

	code, err := o.Execute(context.Background(), defaultRequest())

	assert.True(t, errors.Is(err, rnerrors.ErrPayloadWrite))
	assert.Equal(t, rnerrors.ExitOrchestration, code)
	assert.Equal(t, 0, resolves)
	runner.AssertNumberOfCalls(t, "Start", 1)
}

func TestExecute_BuildWithoutStdinPipe(t *testing.T) {
	runner := &MockRunner{}
	runner.On("Start", mock.Anything, mock.MatchedBy(isBuild)).Return(&exitProcess{}, nil).Once()

	o := New(command.Builder{}, unixLike([]byte("FROM ruby")), runner, func() (string, error) { return "/work", nil })

	_, err := o.Execute(context.Background(), defaultRequest())

	assert.True(t, errors.Is(err, rnerrors.ErrPayloadWrite))
	runner.AssertNumberOfCalls(t, "Start", 1)
}

func TestExecute_SpawnFailure(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"engine not found", &exec.Error{Name: "docker", Err: exec.ErrNotFound}, rnerrors.ExitEngineNotFound},
		{"permission denied", errors.New("permission denied"), rnerrors.ExitOrchestration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &MockRunner{}
			runner.On("Start", mock.Anything, mock.MatchedBy(isBuild)).Return(nil, tt.err).Once()

			o := New(command.Builder{}, unixLike(nil), runner, func() (string, error) { return "/work", nil })

			code, err := o.Execute(context.Background(), defaultRequest())

			assert.True(t, errors.Is(err, rnerrors.ErrSpawnFailed))
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, StateErrorExit, o.State())
			runner.AssertNumberOfCalls(t, "Start", 1)
		})
	}
}

func TestExecute_InterruptedBeforeBuild(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &MockRunner{}
	runner.On("Start", mock.Anything, mock.MatchedBy(isBuild)).Return(nil, context.Canceled).Once()

	o := New(command.Builder{}, unixLike(nil), runner, func() (string, error) { return "/work", nil })

	code, err := o.Execute(ctx, defaultRequest())

	assert.True(t, errors.Is(err, rnerrors.ErrInterrupted))
	assert.False(t, errors.Is(err, rnerrors.ErrSpawnFailed))
	assert.Equal(t, rnerrors.ExitInterrupted, code)
	assert.Equal(t, StateErrorExit, o.State())
}

func TestExecute_InterruptedBetweenPhases(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &MockRunner{}
	runner.On("Start", mock.Anything, mock.MatchedBy(isBuild)).
		Run(func(mock.Arguments) { cancel() }).
		Return(newPipedProcess(0), nil).Once()
	runner.On("Start", mock.Anything, mock.MatchedBy(isRun)).Return(nil, context.Canceled).Once()

	o := New(command.Builder{}, unixLike([]byte("FROM ruby")), runner, func() (string, error) { return "/work", nil })

	code, err := o.Execute(ctx, defaultRequest())

	require.Error(t, err)
	assert.True(t, errors.Is(err, rnerrors.ErrInterrupted))
	assert.Equal(t, rnerrors.ExitInterrupted, code)

	var rnErr *rnerrors.RailsNewError
	require.True(t, errors.As(err, &rnErr))
	assert.Equal(t, "Interrupted while starting the generator", rnErr.Context)
	assert.NotContains(t, rnErr.Suggestion, "executable")
	runner.AssertExpectations(t)
}

func TestExecute_PathResolutionFailure(t *testing.T) {
	runner := &MockRunner{}
	runner.On("Start", mock.Anything, mock.MatchedBy(isBuild)).Return(newPipedProcess(0), nil).Once()

	o := New(command.Builder{}, unixLike([]byte("FROM ruby")), runner, func() (string, error) {
		return "", errors.New("getwd: no such file or directory")
	})

	code, err := o.Execute(context.Background(), defaultRequest())

	assert.True(t, errors.Is(err, rnerrors.ErrPathResolution))
	assert.Equal(t, rnerrors.ExitOrchestration, code)
	runner.AssertNotCalled(t, "Start", mock.Anything, mock.MatchedBy(isRun))
}

func TestExecute_RunFailure(t *testing.T) {
	runner := &MockRunner{}
	runner.On("Start", mock.Anything, mock.MatchedBy(isBuild)).Return(newPipedProcess(0), nil).Once()
	runner.On("Start", mock.Anything, mock.MatchedBy(isRun)).Return(&exitProcess{exitCode: 2}, nil).Once()

	o := New(command.Builder{}, unixLike([]byte("FROM ruby")), runner, func() (string, error) { return "/work", nil })

	code, err := o.Execute(context.Background(), defaultRequest())

	assert.True(t, errors.Is(err, rnerrors.ErrRunPhase))
	assert.Equal(t, 2, code)
	assert.Equal(t, StateErrorExit, o.State())
	runner.AssertExpectations(t)
}

func TestExecute_RunSpawnFailure(t *testing.T) {
	runner := &MockRunner{}
	runner.On("Start", mock.Anything, mock.MatchedBy(isBuild)).Return(newPipedProcess(0), nil).Once()
	runner.On("Start", mock.Anything, mock.MatchedBy(isRun)).Return(nil, fmt.Errorf("fork/exec: %w", errors.New("resource temporarily unavailable"))).Once()

	o := New(command.Builder{}, unixLike([]byte("FROM ruby")), runner, func() (string, error) { return "/work", nil })

	code, err := o.Execute(context.Background(), defaultRequest())

	assert.True(t, errors.Is(err, rnerrors.ErrSpawnFailed))
	assert.Equal(t, rnerrors.ExitOrchestration, code)
}

func TestExecute_Help(t *testing.T) {
	runner := &MockRunner{}
	runner.On("Start", mock.Anything, mock.MatchedBy(isBuild)).Return(newPipedProcess(0), nil).Once()
	runner.On("Start", mock.Anything, mock.MatchedBy(isRun)).Return(&exitProcess{}, nil).Once()

	var resolves int
	o := New(command.Builder{}, unixLike([]byte("FROM ruby")), runner, staticWorkdir("/work", &resolves))

	req := defaultRequest()
	req.Help = true
	code, err := o.Execute(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, 0, resolves, "help needs no workdir binding")

	runInv := runner.Calls[1].Arguments.Get(1).(command.Invocation)
	assert.Equal(t, []string{"run", "--rm", "rails-new-3.2.3-7.1.3", "rails", "new", "--help"}, runInv.Args())
}

func TestBuildSpec_PlatformIdentity(t *testing.T) {
	req := Request{RubyVersion: "3.3.4", Rebuild: true}

	unix := New(command.Builder{}, unixLike(nil), &MockRunner{}, nil).BuildSpec(req)
	require.NotNil(t, unix.UserID)
	require.NotNil(t, unix.GroupID)
	assert.Equal(t, 1000, *unix.UserID)
	assert.True(t, unix.Rebuild)

	windows := New(command.Builder{}, &fakePlatform{name: "windows"}, &MockRunner{}, nil).BuildSpec(req)
	assert.Nil(t, windows.UserID)
	assert.Nil(t, windows.GroupID)
}

func TestPlan(t *testing.T) {
	runner := &MockRunner{}
	o := New(command.NewBuilder("podman"), &fakePlatform{name: "windows"}, runner, func() (string, error) { return "/C/src", nil })

	plan, err := o.Plan(Request{RubyVersion: "3.3.4", GeneratorArgs: []string{"blog"}})

	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, "podman build --build-arg RUNTIME_VERSION=3.3.4 -t rails-new-3.3.4 -", plan[0].String())
	assert.Equal(t, "podman run --rm -v /C/src:/C/src -w /C/src rails-new-3.3.4 rails new blog", plan[1].String())
	runner.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
}

func TestCanTransition(t *testing.T) {
	path := []State{StateIdle, StateBuilding, StateStreamingPayload, StateBuildWait, StateRunning, StateDone}
	for i := 0; i < len(path)-1; i++ {
		assert.True(t, canTransition(path[i], path[i+1]), "%s -> %s", path[i], path[i+1])
	}

	assert.False(t, canTransition(StateBuilding, StateRunning))
	assert.False(t, canTransition(StateIdle, StateDone))
	for _, s := range path[:len(path)-1] {
		assert.True(t, canTransition(s, StateErrorExit), "%s -> error_exit", s)
	}
	assert.False(t, canTransition(StateDone, StateErrorExit))
}
