// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/stratus/cmd/stratus/handlers"
)

// globals is bound to the persistent root flags.
var globals = handlers.Globals{Output: handlers.OutputTable}

// Root returns the root command for the stratus CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stratus",
		Short:         "Create, scale and terminate clusters through pluggable engines",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return handlers.ValidateOutput(globals.Output)
		},
	}

	cmd.PersistentFlags().StringVar(&globals.Server, "server", handlers.ServerFromEnv(), "stratus API address (env STRATUS_SERVER)")
	cmd.PersistentFlags().StringVarP(&globals.Output, "output", "o", handlers.OutputTable, "Output format: table, json or yaml")

	// Server
	cmd.AddCommand(Serve())

	// Client commands
	cmd.AddCommand(Init())
	cmd.AddCommand(Cluster())
	cmd.AddCommand(Template())
	cmd.AddCommand(Image())
	cmd.AddCommand(Plugin())

	// Utility commands
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
