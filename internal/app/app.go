package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"railsnew/internal/command"
	"railsnew/internal/config"
	rnerrors "railsnew/internal/errors"
	"railsnew/internal/orchestrator"
	"railsnew/internal/platform"
	"railsnew/internal/ui"
	"railsnew/internal/workdir"
)

// Options are the CLI inputs. Empty version and engine fields fall back to
// the loaded configuration.
type Options struct {
	ConfigPath    string
	RubyVersion   string
	RailsVersion  string
	Engine        string
	Rebuild       bool
	DryRun        bool
	GeneratorArgs []string
}

// App is the facade the CLI drives.
type App struct {
	console  *ui.Console
	factory  *RuntimeFactory
	platform platform.Platform
	runner   orchestrator.Runner
	resolve  orchestrator.WorkdirResolver
}

// New creates an App attached to the current terminal and host platform.
func New(console *ui.Console) *App {
	return &App{
		console:  console,
		factory:  NewRuntimeFactory(),
		platform: platform.Detect(),
		runner:   orchestrator.NewExecRunner(),
		resolve:  workdir.Resolve,
	}
}

// Generate builds the image and runs rails new with opts.GeneratorArgs.
func (a *App) Generate(ctx context.Context, opts Options) (int, error) {
	return a.execute(ctx, opts, false)
}

// Help builds the image and prints rails new --help from inside it.
func (a *App) Help(ctx context.Context, opts Options) (int, error) {
	return a.execute(ctx, opts, true)
}

func (a *App) execute(ctx context.Context, opts Options, help bool) (int, error) {
	cfg, err := a.settings(opts)
	if err != nil {
		return rnerrors.ExitCode(err), err
	}

	req := orchestrator.Request{
		RubyVersion:   cfg.RubyVersion,
		RailsVersion:  cfg.RailsVersion,
		Rebuild:       opts.Rebuild,
		Help:          help,
		GeneratorArgs: opts.GeneratorArgs,
	}
	orch := orchestrator.New(command.NewBuilder(cfg.Engine), a.platform, a.runner, a.resolve)

	slog.Info("Starting rails-new",
		"ruby", cfg.RubyVersion, "rails", cfg.RailsVersion, "engine", cfg.Engine,
		"rebuild", opts.Rebuild, "help", help, "dryRun", opts.DryRun)

	if opts.DryRun {
		return a.printPlan(orch, req)
	}

	if !help {
		a.warnIfNested()
	}

	return orch.Execute(ctx, req)
}

func (a *App) printPlan(orch *orchestrator.Orchestrator, req orchestrator.Request) (int, error) {
	plan, err := orch.Plan(req)
	if err != nil {
		return rnerrors.ExitCode(err), err
	}

	a.console.PrintInfo("DRY RUN: the following commands would be executed")
	for _, inv := range plan {
		suffix := ""
		if inv.Stdin() == command.StdinPiped {
			suffix = fmt.Sprintf("  (image definition for %s on stdin)", a.platform.Name())
		}
		a.console.Println(inv.String() + suffix)
	}
	return 0, nil
}

// warnIfNested flags that the application will be generated inside an
// existing git work tree.
func (a *App) warnIfNested() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}
	if root, ok := workdir.EnclosingRepository(cwd); ok {
		a.console.PrintWarning(fmt.Sprintf("%s is inside the git repository at %s", cwd, root))
		slog.Warn("Generating inside an existing repository", "cwd", cwd, "repository", root)
	}
}

func (a *App) settings(opts Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, rnerrors.NewConfigError("Failed to load configuration", err.Error(),
			"Fix or remove "+configLocation(opts.ConfigPath), err)
	}

	if opts.RubyVersion != "" {
		cfg.RubyVersion = opts.RubyVersion
	}
	if opts.RailsVersion != "" {
		cfg.RailsVersion = opts.RailsVersion
	}
	if opts.Engine != "" {
		cfg.Engine = opts.Engine
	}

	if err := cfg.Validate(); err != nil {
		return nil, rnerrors.NewConfigError("Invalid options", err.Error(),
			"Check the --ruby, --rails and --engine values", err)
	}
	return cfg, nil
}

func configLocation(path string) string {
	if path != "" {
		return path
	}
	return config.DefaultPath()
}
