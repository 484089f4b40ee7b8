package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"railsnew/internal/app"
	"railsnew/internal/errors"
	"railsnew/internal/ui"
)

// version is set at build time via ldflags
var version = "dev"

type cli struct {
	app  *app.App
	opts app.Options
	code int
}

func newRootCmd(c *cli) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "rails-new [flags] <app-name> [rails new options...]",
		Short:   "Create a new Rails application without installing Ruby",
		Version: version,
		Long: `rails-new builds a container image with the requested Ruby and Rails versions
and runs "rails new" inside it against the current directory. The image is cached,
so later runs with the same versions start immediately.

Everything after the application name is passed to "rails new" unchanged.
An application named like a subcommand (images, rails-help) goes after "--".`,
		Example: `  rails-new blog
  rails-new --ruby 3.2.3 --rails 7.1.3 blog --database=postgresql
  rails-new --dry-run blog
  rails-new -- images`,
		Args:          cobra.MinimumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.opts.GeneratorArgs = args
			code, err := c.app.Generate(cmd.Context(), c.opts)
			c.code = code
			return err
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&c.opts.RubyVersion, "ruby", "u", "", "Ruby version for the image (default from config, 3.3.4)")
	flags.StringVarP(&c.opts.RailsVersion, "rails", "r", "", "Rails version for the image (default: latest when the image is built)")
	flags.StringVar(&c.opts.Engine, "engine", "", "Container engine binary, docker or podman (default from config, docker)")
	flags.StringVar(&c.opts.ConfigPath, "config", "", "Path to the config file (default $XDG_CONFIG_HOME/rails-new/config.yaml)")
	rootCmd.Flags().BoolVar(&c.opts.Rebuild, "rebuild", false, "Rebuild the image without using the build cache")
	rootCmd.Flags().BoolVar(&c.opts.DryRun, "dry-run", false, "Print the engine commands without running them")

	// Flags after the application name belong to rails new.
	rootCmd.Flags().SetInterspersed(false)

	helpCmd := &cobra.Command{
		Use:   "rails-help",
		Short: "Print the help of rails new for the selected versions",
		Long: `rails-help builds (or reuses) the image for the selected Ruby and Rails versions
and prints "rails new --help" from inside it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := c.app.Help(cmd.Context(), c.opts)
			c.code = code
			return err
		},
	}
	helpCmd.Flags().BoolVar(&c.opts.Rebuild, "rebuild", false, "Rebuild the image without using the build cache")
	helpCmd.Flags().BoolVar(&c.opts.DryRun, "dry-run", false, "Print the engine commands without running them")
	rootCmd.AddCommand(helpCmd)

	var prune bool
	imagesCmd := &cobra.Command{
		Use:   "images",
		Short: "List or prune cached rails-new images",
		Long: `images lists the images rails-new has built through the engine API.
With --prune every listed image is removed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if prune {
				return c.app.PruneImages(cmd.Context(), c.opts)
			}
			return c.app.Images(cmd.Context(), c.opts)
		},
	}
	imagesCmd.Flags().BoolVar(&prune, "prune", false, "Remove every cached rails-new image")
	rootCmd.AddCommand(imagesCmd)

	return rootCmd
}

// run executes the command tree with args and returns the process exit status.
func run(ctx context.Context, a *app.App, args []string) int {
	c := &cli{app: a}
	rootCmd := newRootCmd(c)
	rootCmd.SetArgs(args)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		errors.HandleError(err)
		if c.code != 0 {
			return c.code
		}
		return errors.ExitCode(err)
	}
	return c.code
}

func main() {
	if handler, err := errors.GetDefaultHandler(); err == nil {
		slog.SetDefault(handler.Logger())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, app.New(ui.NewConsole()), os.Args[1:])
	stop()

	os.Exit(code)
}
