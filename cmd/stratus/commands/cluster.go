package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/imamik/stratus/cmd/stratus/handlers"
)

// Cluster returns the parent command for cluster lifecycle operations.
func Cluster() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cluster",
		Aliases: []string{"clusters"},
		Short:   "Manage clusters",
	}

	cmd.AddCommand(clusterList())
	cmd.AddCommand(clusterGet())
	cmd.AddCommand(clusterCreate())
	cmd.AddCommand(clusterScale())
	cmd.AddCommand(clusterResize())
	cmd.AddCommand(clusterDelete())
	cmd.AddCommand(clusterWatch())

	return cmd
}

func clusterList() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List clusters",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.ListClusters(cmd.Context(), globals)
		},
	}
}

func clusterGet() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a cluster and its node groups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.GetCluster(cmd.Context(), globals, args[0])
		},
	}
}

// clusterCreate submits a cluster spec.
//
// Flags:
//
//	--file, -f: Path to the cluster spec YAML ("-" reads stdin)
//	--watch, -w: Follow the cluster until it is Active or in Error
func clusterCreate() *cobra.Command {
	var (
		file  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a cluster from a spec file",
		Long: `Create a cluster from a spec file.

The request returns once the engine has validated the spec; instances are
created and configured in the background. A rejected spec leaves the
cluster record behind in status Error.

Examples:
  # Create and follow progress
  stratus cluster create -f cluster.yaml --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.CreateCluster(cmd.Context(), globals, file, watch)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to cluster spec file")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Follow the cluster until it settles")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// clusterScale submits a scaling request.
//
// Flags:
//
//	--file, -f: Path to the scaling request YAML ("-" reads stdin)
//	--watch, -w: Follow the cluster until it is Active or in Error
func clusterScale() *cobra.Command {
	var (
		file  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "scale <id>",
		Short: "Resize node groups and add new ones from a request file",
		Long: `Resize node groups and add new ones from a request file.

The file holds resizeNodeGroups (name and count) and addNodeGroups (full
node group specs). Only Active clusters can be scaled.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.ScaleCluster(cmd.Context(), globals, args[0], file, watch)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to scaling request file")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Follow the cluster until it settles")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func clusterResize() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:     "resize <id> <group=count>...",
		Short:   "Resize existing node groups",
		Example: `  stratus cluster resize 0b6c workers=5 storage=2`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.ResizeNodeGroups(cmd.Context(), globals, args[0], args[1:], watch)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Follow the cluster until it settles")

	return cmd
}

func clusterDelete() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"terminate"},
		Short:   "Terminate a cluster and remove its instances",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.DeleteCluster(cmd.Context(), globals, args[0])
		},
	}
}

// clusterWatch follows a cluster.
//
// Flags:
//
//	--interval: Poll interval (default 2s)
//	--timeout: Give up after this long (default 30m)
func clusterWatch() *cobra.Command {
	var (
		interval time.Duration
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <id>",
		Short: "Follow a cluster until it is Active, in Error or deleted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			return handlers.WatchCluster(ctx, globals, args[0], interval)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", handlers.DefaultWatchInterval, "Poll interval")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "Stop watching after this long (0 disables)")

	return cmd
}
