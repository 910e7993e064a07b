package commands

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/ghe-client/internal/constants"
	"github.com/fivetwenty-io/ghe-client/pkg/ghe"
)

// Common string constants used throughout the commands package.
const (
	NotSet = "-"
	Masked = "***"
	Yes    = "yes"
)

// Common static errors used throughout the commands package.
var (
	ErrAPIConfigNotFound   = errors.New("API configuration not found")
	ErrInvalidOutputFormat = errors.New("output must be table, json or yaml")
	ErrInvalidID           = errors.New("ID must be a positive integer")
	ErrTokenRequired       = errors.New("token is required")
	ErrNotAuthenticated    = errors.New("not authenticated")
)

// stdinIsTerminal reports whether prompts can be answered interactively.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// render writes value as JSON or YAML, or fills and renders a table.
func render(cmd *cobra.Command, value interface{}, fill func(table *tablewriter.Table)) error {
	out := cmd.OutOrStdout()

	switch viper.GetString("output") {
	case constants.FormatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")

		return encoder.Encode(value)
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(constants.JSONIndentSize)

		err := encoder.Encode(value)
		if err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}

		return encoder.Close()
	default:
		table := tablewriter.NewWriter(out)
		fill(table)

		err := table.Render()
		if err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	}
}

// pageFlags are the pagination flags shared by list commands.
type pageFlags struct {
	perPage int
	page    int
	pages   int
}

func (f *pageFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.perPage, "per-page", constants.StandardPageSize, "items per page (max 100)")
	cmd.Flags().IntVar(&f.page, "page", constants.FirstPage, "page to start from")
	cmd.Flags().IntVar(&f.pages, "pages", 0, "number of pages to fetch (0 fetches all)")
}

func (f *pageFlags) request() ghe.PageRequest {
	return ghe.PageRequest{
		PageSize:  f.perPage,
		StartPage: f.page,
		PageCount: f.pages,
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}

	return id, nil
}

// splitRepository parses an OWNER/REPO argument.
func splitRepository(raw string) (string, string, error) {
	owner, repo, ok := strings.Cut(raw, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("%w: %q", constants.ErrInvalidRepository, raw)
	}

	return owner, repo, nil
}

// confirmDelete asks before deleting unless force is set. Without a terminal
// the prompt cannot be answered, so --force is required.
func confirmDelete(cmd *cobra.Command, force bool, what string) error {
	if force {
		return nil
	}

	if !stdinIsTerminal() {
		return fmt.Errorf("%w: use --force to delete %s non-interactively", constants.ErrDeleteCancelled, what)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Really delete %s? [y/N]: ", what)

	answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))

	if answer != "y" && answer != Yes {
		return constants.ErrDeleteCancelled
	}

	return nil
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return NotSet
	}

	return t.Format(constants.DateTimeFormat)
}

func formatBool(b bool) string {
	if b {
		return constants.BooleanTrue
	}

	return constants.BooleanFalse
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}

	return s[:width-3] + "..."
}
