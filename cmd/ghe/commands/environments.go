package commands

import (
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/ghe-client/internal/constants"
	"github.com/fivetwenty-io/ghe-client/pkg/ghe"
)

// NewEnvironmentsCommand creates the pre-receive environments command group.
func NewEnvironmentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "environments",
		Aliases: []string{"environment", "envs", "env"},
		Short:   "Manage pre-receive environments",
		Long:    "List, create, edit and delete pre-receive environments and manage their image downloads",
	}

	cmd.AddCommand(newEnvironmentsListCommand())
	cmd.AddCommand(newEnvironmentsGetCommand())
	cmd.AddCommand(newEnvironmentsCreateCommand())
	cmd.AddCommand(newEnvironmentsEditCommand())
	cmd.AddCommand(newEnvironmentsDeleteCommand())
	cmd.AddCommand(newEnvironmentsDownloadCommand())
	cmd.AddCommand(newEnvironmentsStatusCommand())

	return cmd
}

func newEnvironmentsListCommand() *cobra.Command {
	var (
		pages     pageFlags
		sortBy    string
		direction string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pre-receive environments",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := CreateClient(cmd)
			if err != nil {
				return err
			}

			defer func() { _ = c.Close() }()

			environments, err := c.PreReceiveEnvironments().List(cmd.Context(), &ghe.ListOptions{
				PageRequest: pages.request(),
				Sort:        sortBy,
				Direction:   direction,
			})
			if err != nil {
				return err
			}

			return render(cmd, environments, func(table *tablewriter.Table) {
				table.Header("ID", "Name", "Default", "Hooks", "Download", "Image URL")

				for _, env := range environments {
					_ = table.Append(
						formatInt(env.ID),
						env.Name,
						formatBool(env.DefaultEnvironment),
						formatInt(int64(env.HooksCount)),
						downloadState(env.Download),
						env.ImageURL,
					)
				}
			})
		},
	}

	pages.register(cmd)
	cmd.Flags().StringVar(&sortBy, "sort", "", "sort by created, updated or name")
	cmd.Flags().StringVar(&direction, "direction", "", "sort direction (asc, desc)")

	return cmd
}

func newEnvironmentsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get ENVIRONMENT_ID",
		Short: "Get pre-receive environment details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			c, err := CreateClient(cmd)
			if err != nil {
				return err
			}

			defer func() { _ = c.Close() }()

			env, err := c.PreReceiveEnvironments().Get(cmd.Context(), id)
			if err != nil {
				return err
			}

			return renderEnvironment(cmd, env)
		},
	}
}

func newEnvironmentsCreateCommand() *cobra.Command {
	var name, imageURL string

	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a pre-receive environment",
		Long:    "Create a pre-receive environment from a tarball URL; the image is downloaded in the background",
		Example: "  ghe environments create --name alpine --image-url https://example.com/alpine.tar.gz",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := CreateClient(cmd)
			if err != nil {
				return err
			}

			defer func() { _ = c.Close() }()

			env, err := c.PreReceiveEnvironments().Create(cmd.Context(), &ghe.NewPreReceiveEnvironment{
				Name:     name,
				ImageURL: imageURL,
			})
			if err != nil {
				return err
			}

			return renderEnvironment(cmd, env)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "environment name")
	cmd.Flags().StringVar(&imageURL, "image-url", "", "URL of the environment tarball")

	return cmd
}

func newEnvironmentsEditCommand() *cobra.Command {
	var name, imageURL string

	cmd := &cobra.Command{
		Use:   "edit ENVIRONMENT_ID",
		Short: "Edit a pre-receive environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			update := &ghe.UpdatePreReceiveEnvironment{}

			if cmd.Flags().Changed("name") {
				update.Name = &name
			}

			if cmd.Flags().Changed("image-url") {
				update.ImageURL = &imageURL
			}

			if update.Name == nil && update.ImageURL == nil {
				return constants.ErrNothingToUpdate
			}

			c, err := CreateClient(cmd)
			if err != nil {
				return err
			}

			defer func() { _ = c.Close() }()

			env, err := c.PreReceiveEnvironments().Edit(cmd.Context(), id, update)
			if err != nil {
				return err
			}

			return renderEnvironment(cmd, env)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "environment name")
	cmd.Flags().StringVar(&imageURL, "image-url", "", "URL of the environment tarball")

	return cmd
}

func newEnvironmentsDeleteCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete ENVIRONMENT_ID",
		Short: "Delete a pre-receive environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			err = confirmDelete(cmd, force, "pre-receive environment "+args[0])
			if err != nil {
				return err
			}

			c, err := CreateClient(cmd)
			if err != nil {
				return err
			}

			defer func() { _ = c.Close() }()

			err = c.PreReceiveEnvironments().Delete(cmd.Context(), id)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted pre-receive environment %d\n", id)

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "delete without confirmation")

	return cmd
}

func newEnvironmentsDownloadCommand() *cobra.Command {
	var (
		wait     bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "download ENVIRONMENT_ID",
		Short: "Download the environment image again",
		Long:  "Trigger a new download of the environment tarball, optionally waiting until it succeeds or fails",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			c, err := CreateClient(cmd)
			if err != nil {
				return err
			}

			defer func() { _ = c.Close() }()

			download, err := c.PreReceiveEnvironments().TriggerDownload(cmd.Context(), id)
			if err != nil {
				return err
			}

			if wait && !download.Terminal() {
				download, err = c.PreReceiveEnvironments().WaitForDownload(cmd.Context(), id, interval)
				if download != nil {
					renderErr := renderDownload(cmd, download)
					if err == nil {
						err = renderErr
					}
				}

				return err
			}

			return renderDownload(cmd, download)
		},
	}

	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "wait until the download succeeds or fails")
	cmd.Flags().DurationVar(&interval, "interval", constants.DefaultPollInterval, "polling interval while waiting")

	return cmd
}

func newEnvironmentsStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status ENVIRONMENT_ID",
		Short: "Show the latest image download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			c, err := CreateClient(cmd)
			if err != nil {
				return err
			}

			defer func() { _ = c.Close() }()

			download, err := c.PreReceiveEnvironments().DownloadStatus(cmd.Context(), id)
			if err != nil {
				return err
			}

			return renderDownload(cmd, download)
		},
	}
}

func renderEnvironment(cmd *cobra.Command, env *ghe.PreReceiveEnvironment) error {
	return render(cmd, env, func(table *tablewriter.Table) {
		table.Header("Property", "Value")
		_ = table.Append("ID", formatInt(env.ID))
		_ = table.Append("Name", env.Name)
		_ = table.Append("Image URL", env.ImageURL)
		_ = table.Append("Default", formatBool(env.DefaultEnvironment))
		_ = table.Append("Hooks", formatInt(int64(env.HooksCount)))
		_ = table.Append("Created", formatTime(env.CreatedAt))
		_ = table.Append("Download", downloadState(env.Download))
	})
}

func renderDownload(cmd *cobra.Command, download *ghe.PreReceiveEnvironmentDownload) error {
	return render(cmd, download, func(table *tablewriter.Table) {
		table.Header("Property", "Value")
		_ = table.Append("State", download.State)
		_ = table.Append("Downloaded", formatTime(download.DownloadedAt))

		if download.Message != "" {
			_ = table.Append("Message", download.Message)
		}
	})
}

func downloadState(download *ghe.PreReceiveEnvironmentDownload) string {
	if download == nil || download.State == "" {
		return NotSet
	}

	return download.State
}
