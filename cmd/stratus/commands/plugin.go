package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/stratus/cmd/stratus/handlers"
)

// Plugin returns the parent command for provisioning engines.
func Plugin() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "plugin",
		Aliases: []string{"plugins"},
		Short:   "Inspect provisioning engines",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List provisioning engines",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.ListPlugins(cmd.Context(), globals)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <name> <version>",
		Short: "Show one version of an engine",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.GetPlugin(cmd.Context(), globals, args[0], args[1])
		},
	})

	return cmd
}
