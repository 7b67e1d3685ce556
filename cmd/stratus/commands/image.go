package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/stratus/cmd/stratus/handlers"
)

// Image returns the parent command for the substrate image registry.
//
// Images are registered with the login user engines connect as, and tagged
// with the plugin name and version they are built for.
func Image() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "image",
		Aliases: []string{"images"},
		Short:   "Manage registered images",
	}

	cmd.AddCommand(imageList())
	cmd.AddCommand(imageGet())
	cmd.AddCommand(imageRegister())
	cmd.AddCommand(imageUnregister())
	cmd.AddCommand(imageTag())
	cmd.AddCommand(imageUntag())

	return cmd
}

func imageList() *cobra.Command {
	var tags []string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered images",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.ListImages(cmd.Context(), globals, tags)
		},
	}

	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Only list images carrying every given tag")

	return cmd
}

func imageGet() *cobra.Command {
	var byName bool

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if byName {
				return handlers.FindImage(cmd.Context(), globals, args[0])
			}
			return handlers.GetImage(cmd.Context(), globals, args[0])
		},
	}

	cmd.Flags().BoolVar(&byName, "by-name", false, "Treat the argument as an image name")

	return cmd
}

// imageRegister records image metadata.
//
// Flags:
//
//	--username, -u: Login user of the image (required)
//	--description, -d: Free-form description
func imageRegister() *cobra.Command {
	var username, description string

	cmd := &cobra.Command{
		Use:   "register <id>",
		Short: "Register an image with its login user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.RegisterImage(cmd.Context(), globals, args[0], username, description)
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Login user of the image")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Image description")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

func imageUnregister() *cobra.Command {
	return &cobra.Command{
		Use:   "unregister <id>",
		Short: "Remove the stratus metadata of an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.UnregisterImage(cmd.Context(), globals, args[0])
		},
	}
}

func imageTag() *cobra.Command {
	return &cobra.Command{
		Use:   "tag <id> <tag>...",
		Short: "Add tags to an image",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.TagImage(cmd.Context(), globals, args[0], args[1:])
		},
	}
}

func imageUntag() *cobra.Command {
	return &cobra.Command{
		Use:   "untag <id> <tag>...",
		Short: "Remove tags from an image",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.UntagImage(cmd.Context(), globals, args[0], args[1:])
		},
	}
}
