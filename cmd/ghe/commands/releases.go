package commands

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/ghe-client/internal/constants"
	"github.com/fivetwenty-io/ghe-client/pkg/ghe"
)

// NewReleasesCommand creates the releases command group.
func NewReleasesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "releases",
		Aliases: []string{"release", "rel"},
		Short:   "Manage repository releases",
		Long:    "List, create, edit and delete releases of a repository given as OWNER/REPO",
	}

	cmd.AddCommand(newReleasesListCommand())
	cmd.AddCommand(newReleasesGetCommand())
	cmd.AddCommand(newReleasesLatestCommand())
	cmd.AddCommand(newReleasesCreateCommand())
	cmd.AddCommand(newReleasesEditCommand())
	cmd.AddCommand(newReleasesDeleteCommand())
	cmd.AddCommand(newReleasesAssetsCommand())

	return cmd
}

func newReleasesListCommand() *cobra.Command {
	var pages pageFlags

	cmd := &cobra.Command{
		Use:   "list OWNER/REPO",
		Short: "List releases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, repo, err := splitRepository(args[0])
			if err != nil {
				return err
			}

			c, err := CreateClient(cmd)
			if err != nil {
				return err
			}

			defer func() { _ = c.Close() }()

			request := pages.request()
			releases := []ghe.Release{}

			for result := range c.Releases().Stream(cmd.Context(), owner, repo, &request) {
				if result.Err != nil {
					return result.Err
				}

				releases = append(releases, result.Items...)
			}

			return render(cmd, releases, func(table *tablewriter.Table) {
				table.Header("ID", "Tag", "Name", "Draft", "Prerelease", "Published")

				for _, release := range releases {
					_ = table.Append(
						formatInt(release.ID),
						release.TagName,
						release.Name,
						formatBool(release.Draft),
						formatBool(release.Prerelease),
						formatTime(release.PublishedAt),
					)
				}
			})
		},
	}

	pages.register(cmd)

	return cmd
}

func newReleasesGetCommand() *cobra.Command {
	var tag string

	cmd := &cobra.Command{
		Use:   "get OWNER/REPO [RELEASE_ID]",
		Short: "Get release details",
		Long:  "Get a release by ID, or by tag name with --tag",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, repo, err := splitRepository(args[0])
			if err != nil {
				return err
			}

			var id int64

			if tag == "" {
				if len(args) < 2 {
					return fmt.Errorf("%w: give a release ID or --tag", ErrInvalidID)
				}

				id, err = parseID(args[1])
				if err != nil {
					return err
				}
			}

			c, err := CreateClient(cmd)
			if err != nil {
				return err
			}

			defer func() { _ = c.Close() }()

			var release *ghe.Release
			if tag != "" {
				release, err = c.Releases().GetByTag(cmd.Context(), owner, repo, tag)
			} else {
				release, err = c.Releases().Get(cmd.Context(), owner, repo, id)
			}

			if err != nil {
				return err
			}

			return renderRelease(cmd, release)
		},
	}

	cmd.Flags().StringVar(&tag, "tag", "", "look the release up by tag name")

	return cmd
}

func newReleasesLatestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "latest OWNER/REPO",
		Short: "Get the latest published release",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, repo, err := splitRepository(args[0])
			if err != nil {
				return err
			}

			c, err := CreateClient(cmd)
			if err != nil {
				return err
			}

			defer func() { _ = c.Close() }()

			release, err := c.Releases().GetLatest(cmd.Context(), owner, repo)
			if err != nil {
				return err
			}

			return renderRelease(cmd, release)
		},
	}
}

type releaseFlags struct {
	name       string
	body       string
	target     string
	draft      bool
	prerelease bool
}

func (f *releaseFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "release title")
	cmd.Flags().StringVar(&f.body, "notes", "", "release notes")
	cmd.Flags().StringVar(&f.target, "target", "", "branch or commit the tag is created from")
	cmd.Flags().BoolVar(&f.draft, "draft", false, "mark the release as a draft")
	cmd.Flags().BoolVar(&f.prerelease, "prerelease", false, "mark the release as a prerelease")
}

func newReleasesCreateCommand() *cobra.Command {
	var flags releaseFlags

	cmd := &cobra.Command{
		Use:     "create OWNER/REPO TAG",
		Short:   "Create a release",
		Example: "  ghe releases create octo/widgets v1.2.0 --name 'Widgets 1.2' --draft",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, repo, err := splitRepository(args[0])
			if err != nil {
				return err
			}

			c, err := CreateClient(cmd)
			if err != nil {
				return err
			}

			defer func() { _ = c.Close() }()

			release, err := c.Releases().Create(cmd.Context(), owner, repo, &ghe.NewRelease{
				TagName:         args[1],
				TargetCommitish: flags.target,
				Name:            flags.name,
				Body:            flags.body,
				Draft:           flags.draft,
				Prerelease:      flags.prerelease,
			})
			if err != nil {
				return err
			}

			return renderRelease(cmd, release)
		},
	}

	flags.register(cmd)

	return cmd
}

func newReleasesEditCommand() *cobra.Command {
	var (
		flags releaseFlags
		tag   string
	)

	cmd := &cobra.Command{
		Use:   "edit OWNER/REPO RELEASE_ID",
		Short: "Edit a release",
		Long:  "Change the given fields of a release; other fields are left unchanged",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, repo, err := splitRepository(args[0])
			if err != nil {
				return err
			}

			id, err := parseID(args[1])
			if err != nil {
				return err
			}

			update := &ghe.UpdateRelease{}
			changed := false

			if cmd.Flags().Changed("tag") {
				update.TagName, changed = &tag, true
			}

			if cmd.Flags().Changed("name") {
				update.Name, changed = &flags.name, true
			}

			if cmd.Flags().Changed("notes") {
				update.Body, changed = &flags.body, true
			}

			if cmd.Flags().Changed("target") {
				update.TargetCommitish, changed = &flags.target, true
			}

			if cmd.Flags().Changed("draft") {
				update.Draft, changed = &flags.draft, true
			}

			if cmd.Flags().Changed("prerelease") {
				update.Prerelease, changed = &flags.prerelease, true
			}

			if !changed {
				return constants.ErrNothingToUpdate
			}

			c, err := CreateClient(cmd)
			if err != nil {
				return err
			}

			defer func() { _ = c.Close() }()

			release, err := c.Releases().Edit(cmd.Context(), owner, repo, id, update)
			if err != nil {
				return err
			}

			return renderRelease(cmd, release)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&tag, "tag", "", "new tag name")

	return cmd
}

func newReleasesDeleteCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete OWNER/REPO RELEASE_ID",
		Short: "Delete a release",
		Long:  "Delete a release; the tag itself is kept",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, repo, err := splitRepository(args[0])
			if err != nil {
				return err
			}

			id, err := parseID(args[1])
			if err != nil {
				return err
			}

			err = confirmDelete(cmd, force, "release "+args[1]+" of "+args[0])
			if err != nil {
				return err
			}

			c, err := CreateClient(cmd)
			if err != nil {
				return err
			}

			defer func() { _ = c.Close() }()

			err = c.Releases().Delete(cmd.Context(), owner, repo, id)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted release %d of %s\n", id, args[0])

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "delete without confirmation")

	return cmd
}

func newReleasesAssetsCommand() *cobra.Command {
	var pages pageFlags

	cmd := &cobra.Command{
		Use:   "assets OWNER/REPO RELEASE_ID",
		Short: "List the assets of a release",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, repo, err := splitRepository(args[0])
			if err != nil {
				return err
			}

			id, err := parseID(args[1])
			if err != nil {
				return err
			}

			c, err := CreateClient(cmd)
			if err != nil {
				return err
			}

			defer func() { _ = c.Close() }()

			request := pages.request()

			assets, err := c.Releases().ListAssets(cmd.Context(), owner, repo, id, &request)
			if err != nil {
				return err
			}

			return render(cmd, assets, func(table *tablewriter.Table) {
				table.Header("ID", "Name", "Content Type", "Size", "Downloads")

				for _, asset := range assets {
					_ = table.Append(
						formatInt(asset.ID),
						asset.Name,
						asset.ContentType,
						formatInt(asset.Size),
						formatInt(asset.DownloadCount),
					)
				}
			})
		},
	}

	pages.register(cmd)

	return cmd
}

func renderRelease(cmd *cobra.Command, release *ghe.Release) error {
	return render(cmd, release, func(table *tablewriter.Table) {
		table.Header("Property", "Value")
		_ = table.Append("ID", formatInt(release.ID))
		_ = table.Append("Tag", release.TagName)
		_ = table.Append("Name", release.Name)
		_ = table.Append("Draft", formatBool(release.Draft))
		_ = table.Append("Prerelease", formatBool(release.Prerelease))
		_ = table.Append("Created", formatTime(release.CreatedAt))
		_ = table.Append("Published", formatTime(release.PublishedAt))
		_ = table.Append("Assets", formatInt(int64(len(release.Assets))))

		if release.HTMLURL != "" {
			_ = table.Append("URL", release.HTMLURL)
		}
	})
}
