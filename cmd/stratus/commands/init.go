package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/stratus/cmd/stratus/handlers"
)

// Init returns the command for interactively creating a cluster spec.
//
// The wizard offers the engines, versions and node processes of the
// server named by --server.
//
// Flags:
//
//	--output-file, -f: Path to output file (default "cluster.yaml")
//	--advanced, -a: Show advanced configuration options
func Init() *cobra.Command {
	var (
		outputPath string
		advanced   bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create a cluster spec",
		Long: `Interactively create a cluster spec file.

This command guides you through configuring a cluster step by step.
It will ask about:

  - Cluster name and provisioning engine
  - Engine version and default image
  - Manager node group
  - Worker node groups (optional)

Use --advanced to also set cluster labels.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), globals, outputPath, advanced)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output-file", "f", "cluster.yaml", "Output file path")
	cmd.Flags().BoolVarP(&advanced, "advanced", "a", false, "Show advanced configuration options")

	return cmd
}
