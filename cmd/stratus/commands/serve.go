package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/stratus/cmd/stratus/handlers"
)

// Serve returns the command running the API server.
//
// Flags:
//
//	--config, -c: Path to the server configuration YAML file
func Serve() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the stratus API server",
		Long: `Run the stratus API server.

The server keeps cluster records in the configured store (memory, postgres
or s3), creates instances on the configured substrate (hcloud or docker)
and drives the lifecycle operations in the background.

Environment variables override the configuration file, e.g.
STRATUS_ADDR, STRATUS_STORE, STRATUS_SUBSTRATE and HCLOUD_TOKEN.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Serve(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")

	return cmd
}
