// Package orchestrator builds the scaffolding image and then runs the
// generator in it.
//
// The image definition is streamed into the build's standard input by a
// separate goroutine while the orchestrator waits on the build process. The
// writer is joined before the build outcome is inspected, and the run phase
// only starts after a successful build.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"railsnew/internal/command"
	rnerrors "railsnew/internal/errors"
	"railsnew/internal/platform"
	"railsnew/internal/workdir"
)

// Request carries the validated inputs of one invocation.
type Request struct {
	RubyVersion   string
	RailsVersion  string
	Rebuild       bool
	Help          bool
	GeneratorArgs []string
}

// WorkdirResolver returns the host path bound into the run container.
type WorkdirResolver func() (string, error)

type Orchestrator struct {
	builder  command.Builder
	platform platform.Platform
	runner   Runner
	resolve  WorkdirResolver
	state    State
	logger   *slog.Logger
}

// New creates an Orchestrator. A nil resolve uses workdir.Resolve.
func New(builder command.Builder, p platform.Platform, runner Runner, resolve WorkdirResolver) *Orchestrator {
	if resolve == nil {
		resolve = workdir.Resolve
	}
	return &Orchestrator{
		builder:  builder,
		platform: p,
		runner:   runner,
		resolve:  resolve,
		state:    StateIdle,
		logger:   slog.Default(),
	}
}

// State returns the current workflow state.
func (o *Orchestrator) State() State {
	return o.state
}

// BuildSpec derives the build parameters for req on the orchestrator's platform.
func (o *Orchestrator) BuildSpec(req Request) command.BuildSpec {
	spec := command.BuildSpec{
		RubyVersion:  req.RubyVersion,
		RailsVersion: req.RailsVersion,
		Rebuild:      req.Rebuild,
	}
	if uid, gid, ok := o.platform.Identity(); ok {
		spec.UserID = &uid
		spec.GroupID = &gid
	}
	return spec
}

// Plan returns the build and run (or help) invocations without starting them.
func (o *Orchestrator) Plan(req Request) ([]command.Invocation, error) {
	build := o.builder.BuildImage(o.BuildSpec(req))

	run, err := o.runInvocation(req)
	if err != nil {
		return nil, err
	}

	return []command.Invocation{build, run}, nil
}

// Execute runs the build phase and, if it succeeds, the run phase. The
// returned exit code is the status the tool should exit with.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (int, error) {
	o.logger = slog.Default().With("run_id", uuid.New().String())
	o.state = StateIdle
	image := command.ImageName(req.RubyVersion, req.RailsVersion)

	if err := o.build(ctx, req, image); err != nil {
		return o.fail(err)
	}

	runInv, err := o.runInvocation(req)
	if err != nil {
		return o.fail(err)
	}

	o.transition(StateRunning)
	o.logger.Info("Starting generator", "command", runInv.String())

	proc, err := o.runner.Start(ctx, runInv)
	if err != nil {
		return o.fail(startError(ctx, "starting the generator", runInv, err))
	}

	code, err := proc.Wait()
	if err != nil {
		if ctx.Err() != nil {
			return o.fail(rnerrors.NewInterruptedError("running the generator", ctx.Err()))
		}
		return o.fail(rnerrors.NewRailsNewError(rnerrors.ErrRunPhase, rnerrors.ExitOrchestration,
			"Failed to wait for the generator", err.Error(), "", err))
	}
	if code != 0 {
		return o.fail(rnerrors.NewRunPhaseError(image, code))
	}

	o.transition(StateDone)
	o.logger.Info("Generator finished", "image", image)
	return 0, nil
}

func (o *Orchestrator) build(ctx context.Context, req Request, image string) error {
	inv := o.builder.BuildImage(o.BuildSpec(req))

	o.transition(StateBuilding)
	o.logger.Info("Building image", "image", image, "platform", o.platform.Name(), "command", inv.String())

	proc, err := o.runner.Start(ctx, inv)
	if err != nil {
		return startError(ctx, "starting the image build", inv, err)
	}

	stdin := proc.Stdin()
	if stdin == nil {
		// Reap the process before reporting; it cannot receive the definition.
		if _, waitErr := proc.Wait(); waitErr != nil {
			o.logger.Warn("Failed to wait for build", "error", waitErr)
		}
		return rnerrors.NewPayloadWriteError(errors.New("build process has no stdin pipe"))
	}

	o.transition(StateStreamingPayload)
	payload := o.platform.Dockerfile()

	var writer errgroup.Group
	writer.Go(func() error {
		_, err := stdin.Write(payload)
		if closeErr := stdin.Close(); err == nil {
			err = closeErr
		}
		return err
	})

	o.transition(StateBuildWait)
	code, waitErr := proc.Wait()
	writeErr := writer.Wait()

	if waitErr != nil {
		if ctx.Err() != nil {
			return rnerrors.NewInterruptedError("building "+image, ctx.Err())
		}
		return rnerrors.NewRailsNewError(rnerrors.ErrBuildPhase, rnerrors.ExitOrchestration,
			"Failed to wait for the image build", waitErr.Error(), "", waitErr)
	}
	if code != 0 {
		if writeErr != nil {
			o.logger.Warn("Image definition was not fully delivered", "error", writeErr)
		}
		return rnerrors.NewBuildPhaseError(image, code)
	}
	if writeErr != nil {
		return rnerrors.NewPayloadWriteError(fmt.Errorf("write %d bytes to build stdin: %w", len(payload), writeErr))
	}

	o.logger.Info("Image built", "image", image)
	return nil
}

// startError classifies a failed Start. A cancelled context means the user
// interrupted the tool, not that the engine is unusable.
func startError(ctx context.Context, action string, inv command.Invocation, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return rnerrors.NewInterruptedError(action, ctxErr)
	}
	return rnerrors.NewSpawnError(inv.Program(), err)
}

func (o *Orchestrator) runInvocation(req Request) (command.Invocation, error) {
	if req.Help {
		return o.builder.GetHelp(req.RubyVersion, req.RailsVersion), nil
	}

	dir, err := o.resolve()
	if err != nil {
		if !errors.Is(err, rnerrors.ErrPathResolution) {
			err = rnerrors.NewPathResolutionError(err)
		}
		return command.Invocation{}, err
	}

	return o.builder.RunImage(req.RubyVersion, req.RailsVersion, dir, req.GeneratorArgs), nil
}

func (o *Orchestrator) transition(to State) {
	if !canTransition(o.state, to) {
		o.logger.Warn("Unexpected state transition", "from", o.state.String(), "to", to.String())
	}
	o.logger.Debug("State transition", "from", o.state.String(), "to", to.String())
	o.state = to
}

func (o *Orchestrator) fail(err error) (int, error) {
	o.transition(StateErrorExit)
	o.logger.Error("Workflow failed", "error", err)
	return rnerrors.ExitCode(err), err
}
