package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/fivetwenty-io/ghe-client/internal/auth"
	"github.com/fivetwenty-io/ghe-client/pkg/gheclient"
)

// readSecret reads a token without echo.
var readSecret = func() (string, error) {
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}

	return string(secret), nil
}

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	var (
		name      string
		expiresAt string
	)

	cmd := &cobra.Command{
		Use:   "login [ENDPOINT]",
		Short: "Store a token for a GitHub Enterprise Server instance",
		Long: `Register an API endpoint and store a personal access token for it.

The token is read from --token or GHE_TOKEN, from a hidden prompt on a
terminal, or from the first line of standard input, e.g.
'echo "$TOKEN" | ghe login ghe.example.com'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			reader := bufio.NewReader(cmd.InOrStdin())

			endpoint := ""
			if len(args) == 1 {
				endpoint = args[0]
			}

			if endpoint == "" {
				endpoint = viper.GetString("api")
			}

			if api, ok := config.APIs[endpoint]; ok {
				name, endpoint = endpoint, api.Endpoint
			}

			if endpoint == "" && config.CurrentAPI != "" {
				if api, ok := config.APIs[config.CurrentAPI]; ok {
					name, endpoint = config.CurrentAPI, api.Endpoint
				}
			}

			if endpoint == "" {
				fmt.Fprint(cmd.OutOrStdout(), "API endpoint: ")
				line, _ := reader.ReadString('\n')
				endpoint = strings.TrimSpace(line)
			}

			baseURL, err := gheclient.NormalizeBaseURL(endpoint)
			if err != nil {
				return fmt.Errorf("invalid API endpoint: %w", err)
			}

			if name == "" {
				name = extractDomainFromEndpoint(baseURL)
			}

			var expiry time.Time
			if expiresAt != "" {
				expiry, err = parseExpiry(expiresAt)
				if err != nil {
					return err
				}
			}

			token := viper.GetString("token")
			if token == "" {
				token, err = promptToken(cmd, reader)
				if err != nil {
					return err
				}
			}

			api, ok := config.APIs[name]
			if !ok || api.Endpoint != baseURL {
				config.APIs[name] = &APIConfig{Endpoint: baseURL}
			}

			config.CurrentAPI = name

			err = saveConfigStruct(config)
			if err != nil {
				return err
			}

			manager := auth.NewConfigTokenManager(NewConfigPersister(), name, "", time.Time{})

			err = manager.Save(token, expiry)
			if err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in to %s (%s)\n", name, baseURL)

			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "name to store the API under (default is the host name)")
	cmd.Flags().StringVar(&expiresAt, "expires-at", "", "token expiry as a date (2006-01-02) or RFC 3339 time")

	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout [API]",
		Short: "Remove the stored token of an API",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			target := viper.GetString("api")
			if len(args) == 1 {
				target = args[0]
			}

			name, api, err := resolveAPI(config, target)
			if err != nil {
				return err
			}

			stored, ok := config.APIs[name]
			if !ok || stored.Token == "" {
				return fmt.Errorf("%w: %s", ErrNotAuthenticated, name)
			}

			err = NewConfigPersister().UpdateHostToken(name, "", time.Time{})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged out of %s (%s)\n", name, api.Endpoint)

			return nil
		},
	}
}

func promptToken(cmd *cobra.Command, reader *bufio.Reader) (string, error) {
	var (
		token string
		err   error
	)

	if stdinIsTerminal() {
		fmt.Fprint(cmd.OutOrStdout(), "Token: ")
		token, err = readSecret()
		fmt.Fprintln(cmd.OutOrStdout())

		if err != nil {
			return "", err
		}
	} else {
		token, _ = reader.ReadString('\n')
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrTokenRequired
	}

	return token, nil
}

func parseExpiry(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --expires-at %q: %w", raw, err)
	}

	return t, nil
}
