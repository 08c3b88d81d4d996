package commands

import (
	"strings"

	"github.com/spf13/cobra"
	"go.trai.ch/wash/internal/app"
)

func (c *CLI) newRunCmd() *cobra.Command {
	var opts app.RunOptions

	cmd := &cobra.Command{
		Use:   "run <command> [args...]",
		Short: "Run a cargo command in the selected projects",
		Long: "Run a cargo command in every selected project, at most one per workspace at a time.\n" +
			"The command is matched against the palette unless --exact is given, so 'rel' runs 'build --release'.",
		Example: "  wash run test\n  wash run -p core -p cli clippy -- -D warnings",
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				// Display command usage help without returning an error
				_ = cmd.Help()
				return nil
			}
			opts.Options = c.options()
			return c.app.Run(cmd.Context(), strings.Join(args, " "), opts)
		},
	}
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().BoolVarP(&opts.All, "all", "a", false, "Target every top-level project, ignoring --project")
	cmd.Flags().StringArrayVarP(&opts.Projects, "project", "p", nil, "Select a project by name or path (repeatable)")
	cmd.Flags().BoolVarP(&opts.Exact, "exact", "e", false, "Run the command as typed, without palette matching")
	return cmd
}
