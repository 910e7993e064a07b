package commands

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/ghe-client/internal/constants"
	"github.com/fivetwenty-io/ghe-client/pkg/ghe"
)

const scriptColumnWidth = 40

// NewHooksCommand creates the pre-receive hooks command group.
func NewHooksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "hooks",
		Aliases: []string{"hook", "pre-receive-hooks"},
		Short:   "Manage pre-receive hooks",
		Long:    "List, create, edit and delete pre-receive hooks (site administrator)",
	}

	cmd.AddCommand(newHooksListCommand())
	cmd.AddCommand(newHooksGetCommand())
	cmd.AddCommand(newHooksCreateCommand())
	cmd.AddCommand(newHooksEditCommand())
	cmd.AddCommand(newHooksDeleteCommand())

	return cmd
}

func newHooksListCommand() *cobra.Command {
	var (
		pages     pageFlags
		sortBy    string
		direction string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pre-receive hooks",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := CreateClient(cmd)
			if err != nil {
				return err
			}

			defer func() { _ = c.Close() }()

			hooks, err := c.PreReceiveHooks().List(cmd.Context(), &ghe.ListOptions{
				PageRequest: pages.request(),
				Sort:        sortBy,
				Direction:   direction,
			})
			if err != nil {
				return err
			}

			return render(cmd, hooks, func(table *tablewriter.Table) {
				table.Header("ID", "Name", "Enforcement", "Environment", "Repository", "Script")

				for _, hook := range hooks {
					_ = table.Append(
						formatInt(hook.ID),
						hook.Name,
						hook.Enforcement,
						environmentName(hook.Environment),
						repositoryName(hook.ScriptRepository),
						truncate(hook.Script, scriptColumnWidth),
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

func newHooksGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get HOOK_ID",
		Short: "Get pre-receive hook details",
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

			hook, err := c.PreReceiveHooks().Get(cmd.Context(), id)
			if err != nil {
				return err
			}

			return renderHook(cmd, hook)
		},
	}
}

type hookFlags struct {
	name            string
	script          string
	repository      string
	environment     int64
	enforcement     string
	allowDownstream bool
}

func (f *hookFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "hook name")
	cmd.Flags().StringVar(&f.script, "script", "", "script path inside the script repository")
	cmd.Flags().StringVar(&f.repository, "repository", "", "script repository (OWNER/REPO)")
	cmd.Flags().Int64Var(&f.environment, "environment", 0, "pre-receive environment ID")
	cmd.Flags().StringVar(&f.enforcement, "enforcement", "", "enabled, disabled or testing")
	cmd.Flags().BoolVar(&f.allowDownstream, "allow-downstream", false, "allow repositories and organizations to override enforcement")
}

func validateEnforcement(enforcement string) error {
	switch enforcement {
	case "", ghe.EnforcementEnabled, ghe.EnforcementDisabled, ghe.EnforcementTesting:
		return nil
	default:
		return fmt.Errorf("%w: %q", constants.ErrInvalidEnforcement, enforcement)
	}
}

func newHooksCreateCommand() *cobra.Command {
	var flags hookFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a pre-receive hook",
		Example: `  ghe hooks create --name block-secrets --repository admin/hooks \
    --script scripts/block-secrets.sh --environment 2 --enforcement testing`,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := validateEnforcement(flags.enforcement)
			if err != nil {
				return err
			}

			req := ghe.NewPreReceiveHookRequest(flags.name, flags.repository, flags.script, flags.environment)
			req.Enforcement = flags.enforcement

			if cmd.Flags().Changed("allow-downstream") {
				req.AllowDownstreamConfiguration = &flags.allowDownstream
			}

			c, err := CreateClient(cmd)
			if err != nil {
				return err
			}

			defer func() { _ = c.Close() }()

			hook, err := c.PreReceiveHooks().Create(cmd.Context(), req)
			if err != nil {
				return err
			}

			return renderHook(cmd, hook)
		},
	}

	flags.register(cmd)

	return cmd
}

func newHooksEditCommand() *cobra.Command {
	var flags hookFlags

	cmd := &cobra.Command{
		Use:   "edit HOOK_ID",
		Short: "Edit a pre-receive hook",
		Long:  "Change the given fields of a pre-receive hook; other fields are left unchanged",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			err = validateEnforcement(flags.enforcement)
			if err != nil {
				return err
			}

			update := &ghe.UpdatePreReceiveHook{}
			changed := false

			if cmd.Flags().Changed("name") {
				update.Name, changed = &flags.name, true
			}

			if cmd.Flags().Changed("script") {
				update.Script, changed = &flags.script, true
			}

			if cmd.Flags().Changed("repository") {
				update.ScriptRepository, changed = &ghe.RepositoryReference{FullName: flags.repository}, true
			}

			if cmd.Flags().Changed("environment") {
				update.Environment, changed = &ghe.EnvironmentReference{ID: flags.environment}, true
			}

			if cmd.Flags().Changed("enforcement") {
				update.Enforcement, changed = &flags.enforcement, true
			}

			if cmd.Flags().Changed("allow-downstream") {
				update.AllowDownstreamConfiguration, changed = &flags.allowDownstream, true
			}

			if !changed {
				return constants.ErrNothingToUpdate
			}

			c, err := CreateClient(cmd)
			if err != nil {
				return err
			}

			defer func() { _ = c.Close() }()

			hook, err := c.PreReceiveHooks().Edit(cmd.Context(), id, update)
			if err != nil {
				return err
			}

			return renderHook(cmd, hook)
		},
	}

	flags.register(cmd)

	return cmd
}

func newHooksDeleteCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete HOOK_ID",
		Short: "Delete a pre-receive hook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			err = confirmDelete(cmd, force, "pre-receive hook "+args[0])
			if err != nil {
				return err
			}

			c, err := CreateClient(cmd)
			if err != nil {
				return err
			}

			defer func() { _ = c.Close() }()

			err = c.PreReceiveHooks().Delete(cmd.Context(), id)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted pre-receive hook %d\n", id)

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "delete without confirmation")

	return cmd
}

func renderHook(cmd *cobra.Command, hook *ghe.PreReceiveHook) error {
	return render(cmd, hook, func(table *tablewriter.Table) {
		table.Header("Property", "Value")
		_ = table.Append("ID", formatInt(hook.ID))
		_ = table.Append("Name", hook.Name)
		_ = table.Append("Enforcement", hook.Enforcement)
		_ = table.Append("Script", hook.Script)
		_ = table.Append("Repository", repositoryName(hook.ScriptRepository))
		_ = table.Append("Environment", environmentName(hook.Environment))
		_ = table.Append("Allow Downstream", formatBool(hook.AllowDownstreamConfiguration))
	})
}

func repositoryName(repo *ghe.Repository) string {
	if repo == nil {
		return NotSet
	}

	return repo.FullName
}

func environmentName(env *ghe.PreReceiveEnvironment) string {
	if env == nil {
		return NotSet
	}

	return env.Name
}
