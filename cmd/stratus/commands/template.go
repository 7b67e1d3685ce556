package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/imamik/stratus/cmd/stratus/handlers"
)

// Template returns the parent command for cluster and node group templates.
func Template() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "template",
		Aliases: []string{"templates"},
		Short:   "Manage cluster and node group templates",
	}

	cluster := templateCommands("cluster", "cluster template", templateHandlers{
		list:   handlers.ListClusterTemplates,
		get:    handlers.GetClusterTemplate,
		create: handlers.CreateClusterTemplate,
		delete: handlers.DeleteClusterTemplate,
	})
	cluster.AddCommand(templateConvert())
	cmd.AddCommand(cluster)
	cmd.AddCommand(templateCommands("node-group", "node group template", templateHandlers{
		list:   handlers.ListNodeGroupTemplates,
		get:    handlers.GetNodeGroupTemplate,
		create: handlers.CreateNodeGroupTemplate,
		delete: handlers.DeleteNodeGroupTemplate,
	}))

	return cmd
}

type templateHandlers struct {
	list   func(ctx context.Context, g handlers.Globals) error
	get    func(ctx context.Context, g handlers.Globals, id string) error
	create func(ctx context.Context, g handlers.Globals, path string) error
	delete func(ctx context.Context, g handlers.Globals, id string) error
}

func templateCommands(use, noun string, h templateHandlers) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: "Manage " + noun + "s",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List " + noun + "s",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return h.list(cmd.Context(), globals)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show a " + noun,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return h.get(cmd.Context(), globals, args[0])
		},
	})

	var file string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a " + noun + " from a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return h.create(cmd.Context(), globals, file)
		},
	}
	create.Flags().StringVarP(&file, "file", "f", "", "Path to the template YAML")
	_ = create.MarkFlagRequired("file")
	cmd.AddCommand(create)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a " + noun,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return h.delete(cmd.Context(), globals, args[0])
		},
	})

	return cmd
}

// templateConvert builds a cluster template from a plugin-native file.
//
// Flags:
//
//	--file, -f: Configuration file in the plugin's own format, "-" for stdin (required)
//	--name, -n: Name of the new template (required)
func templateConvert() *cobra.Command {
	var file, name string

	cmd := &cobra.Command{
		Use:   "convert <plugin> <version>",
		Short: "Create a cluster template from a plugin configuration file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.ConvertClusterTemplate(cmd.Context(), globals, args[0], args[1], name, file)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the plugin configuration file")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Name of the new template")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}
