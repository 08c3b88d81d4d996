package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/wash/internal/app"
)

func (c *CLI) newCheckCmd() *cobra.Command {
	var opts app.CheckOptions

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check locked dependencies against the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Options = c.options()
			return c.app.Check(cmd.Context(), opts)
		},
	}
	cmd.Flags().BoolVarP(&opts.Refresh, "refresh", "r", false, "Ignore cached lookups")
	cmd.Flags().StringArrayVarP(&opts.Projects, "project", "p", nil, "Select a project by name or path (repeatable)")
	return cmd
}
