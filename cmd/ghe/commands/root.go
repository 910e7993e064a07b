package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/ghe-client/internal/constants"
	"github.com/fivetwenty-io/ghe-client/pkg/ghe"
)

// session is the state shared by the commands of one invocation.
type session struct {
	version string
	metrics *ghe.MetricsCollector

	mu        sync.Mutex
	endpoints map[string]struct{}
}

var current = &session{}

// NewRootCommand builds the ghe command tree.
func NewRootCommand(version, commit, date string) *cobra.Command {
	current = &session{version: version}

	rootCmd := &cobra.Command{
		Use:   "ghe",
		Short: "GitHub Enterprise Server API CLI",
		Long: `A command-line interface for the GitHub Enterprise Server REST API.

Manage pre-receive hooks and environments as a site administrator and work
with repository releases.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			initConfig(cmd)

			if viper.GetBool("metrics") {
				current.enableMetrics()
			}

			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return current.printMetrics(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.ghe/config.yml)")
	flags.StringP("api", "a", "", "API name from the config file or endpoint URL")
	flags.StringP("token", "t", "", "personal access token")
	flags.StringP("output", "o", constants.FormatTable, "output format (table, json, yaml)")
	flags.BoolP("verbose", "v", false, "log HTTP requests and responses")
	flags.Bool("metrics", false, "print per-endpoint request metrics after the command")

	for _, name := range []string{"config", "api", "token", "output", "verbose", "metrics"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(NewLoginCommand())
	rootCmd.AddCommand(NewLogoutCommand())
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewHooksCommand())
	rootCmd.AddCommand(NewEnvironmentsCommand())
	rootCmd.AddCommand(NewReleasesCommand())

	return rootCmd
}

func initConfig(cmd *cobra.Command) {
	cfgFile := viper.GetString("config")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".ghe"))
		}

		viper.SetConfigType("yml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("GHE")
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err == nil && viper.GetBool("verbose") {
		fmt.Fprintln(cmd.ErrOrStderr(), "Using config file:", viper.ConfigFileUsed())
	}
}

func (s *session) enableMetrics() {
	s.metrics = ghe.NewMetricsCollector()
	s.endpoints = make(map[string]struct{})

	s.metrics.SetOnChange(func(endpoint string, _ ghe.Metrics) {
		s.mu.Lock()
		s.endpoints[endpoint] = struct{}{}
		s.mu.Unlock()
	})
}

func (s *session) printMetrics(cmd *cobra.Command) error {
	if s.metrics == nil {
		return nil
	}

	s.mu.Lock()
	endpoints := make([]string, 0, len(s.endpoints))

	for endpoint := range s.endpoints {
		endpoints = append(endpoints, endpoint)
	}
	s.mu.Unlock()

	sort.Strings(endpoints)

	table := tablewriter.NewWriter(cmd.ErrOrStderr())
	table.Header("Endpoint", "Requests", "Errors", "Avg Latency")

	for _, endpoint := range endpoints {
		m := s.metrics.GetMetrics(endpoint)
		if m == nil {
			continue
		}

		_ = table.Append(endpoint, strconv.FormatInt(m.TotalRequests, 10), strconv.FormatInt(m.TotalErrors, 10), m.AverageLatency.String())
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render metrics table: %w", err)
	}

	return nil
}
