// Package commands implements the CLI commands for wash.
package commands

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.trai.ch/wash/internal/adapters/logger"
	"go.trai.ch/wash/internal/adapters/telemetry"
	"go.trai.ch/wash/internal/app"
	"go.trai.ch/wash/internal/build"
	"go.trai.ch/zerr"
)

// CLI represents the command line interface for wash.
type CLI struct {
	app     *app.App
	logger  *logger.Logger
	rootCmd *cobra.Command

	flags    globalFlags
	shutdown func(context.Context) error
}

type globalFlags struct {
	config  string
	root    string
	output  string
	json    bool
	verbose bool
	trace   string
}

// New creates a new CLI instance. log may be nil when the caller configures logging itself.
func New(a *app.App, log *logger.Logger) *CLI {
	c := &CLI{app: a, logger: log}

	rootCmd := &cobra.Command{
		Use:           "wash",
		Short:         "Run cargo commands across every project in a tree",
		Long:          "wash discovers cargo projects and workspaces below a directory, runs cargo commands against them\nand keeps their locked dependencies checked against the registry.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Interactive(cmd.Context(), c.options())
		},
	}
	rootCmd.SetVersionTemplate(
		"wash version {{.Version}} (commit: " + build.Commit + ", date: " + build.Date + ")\n",
	)

	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&c.flags.config, "config", "c", "", "Settings file (default: nearest wash.yaml, then the user config directory)")
	pf.StringVarP(&c.flags.root, "dir", "C", "", "Directory to discover projects in (default: current directory)")
	pf.StringVarP(&c.flags.output, "output", "o", "auto", "Output mode: auto, tui or linear")
	pf.BoolVar(&c.flags.json, "json", false, "Write log records as JSON")
	pf.BoolVarP(&c.flags.verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVar(&c.flags.trace, "trace", "", "Write OpenTelemetry spans as JSON lines to this file")

	c.rootCmd = rootCmd

	rootCmd.AddCommand(c.newRunCmd())
	rootCmd.AddCommand(c.newCheckCmd())
	rootCmd.AddCommand(c.newListCmd())
	rootCmd.AddCommand(c.newUICmd())
	rootCmd.AddCommand(c.newCacheCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context and flushes traces afterwards.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	err := c.rootCmd.Execute()
	if c.shutdown != nil {
		err = errors.Join(err, c.shutdown(context.WithoutCancel(ctx)))
		c.shutdown = nil
	}
	return err
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput redirects the command's own output, such as help and version text.
func (c *CLI) SetOutput(w io.Writer) {
	c.rootCmd.SetOut(w)
	c.rootCmd.SetErr(w)
}

func (c *CLI) options() app.Options {
	return app.Options{
		Config:     c.flags.config,
		Root:       c.flags.root,
		OutputMode: c.flags.output,
	}
}

func (c *CLI) setup(stderr io.Writer) error {
	if c.logger != nil {
		c.logger.SetOutput(stderr)
		c.logger.SetJSON(c.flags.json)
		c.logger.SetVerbose(c.flags.verbose)
	}

	if c.flags.trace == "" {
		return nil
	}
	//nolint:gosec // The trace path is chosen by the user.
	f, err := os.Create(c.flags.trace)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create trace file"), "path", c.flags.trace)
	}
	shutdown, err := telemetry.Setup(f)
	if err != nil {
		return errors.Join(err, f.Close())
	}
	c.shutdown = func(ctx context.Context) error {
		return errors.Join(shutdown(ctx), f.Close())
	}
	return nil
}
