package commands

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/ghe-client/internal/constants"
	"github.com/fivetwenty-io/ghe-client/pkg/ghe"
	"github.com/fivetwenty-io/ghe-client/pkg/gheclient"
)

// Config represents the CLI configuration file.
type Config struct {
	APIs       map[string]*APIConfig `json:"apis,omitempty"        yaml:"apis,omitempty"`
	CurrentAPI string                `json:"current_api,omitempty" yaml:"current_api,omitempty"`

	Output    string `json:"output,omitempty"     yaml:"output,omitempty"`
	Cache     string `json:"cache,omitempty"      yaml:"cache,omitempty"`
	NATSURL   string `json:"nats_url,omitempty"   yaml:"nats_url,omitempty"`
	RateLimit int    `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
	Retries   int    `json:"retries,omitempty"    yaml:"retries,omitempty"`
}

// APIConfig represents one GitHub Enterprise Server instance.
type APIConfig struct {
	Endpoint       string     `json:"endpoint"                   yaml:"endpoint"`
	Token          string     `json:"token,omitempty"            yaml:"token,omitempty"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty" yaml:"token_expires_at,omitempty"`
	LastRefreshed  *time.Time `json:"last_refreshed,omitempty"   yaml:"last_refreshed,omitempty"`
}

// globalSetters maps the keys accepted by "config set" to their fields.
var globalSetters = map[string]func(*Config, string) error{
	"output": func(c *Config, v string) error {
		switch v {
		case constants.FormatTable, constants.FormatJSON, constants.FormatYAML:
			c.Output = v

			return nil
		default:
			return fmt.Errorf("%w: %s", ErrInvalidOutputFormat, v)
		}
	},
	"current_api": func(c *Config, v string) error {
		if _, ok := c.APIs[v]; !ok {
			return fmt.Errorf("API '%s': %w", v, ErrAPIConfigNotFound)
		}

		c.CurrentAPI = v

		return nil
	},
	"cache": func(c *Config, v string) error {
		switch ghe.CacheType(v) {
		case ghe.CacheTypeNone, ghe.CacheTypeMemory, ghe.CacheTypeNATS:
			c.Cache = v

			return nil
		default:
			return fmt.Errorf("%w: %s", ghe.ErrUnsupportedCacheType, v)
		}
	},
	"nats_url": func(c *Config, v string) error {
		c.NATSURL = v

		return nil
	},
	"rate_limit": func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("rate_limit must be a non-negative integer: %q", v)
		}

		c.RateLimit = n

		return nil
	},
	"retries": func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("retries must be a non-negative integer: %q", v)
		}

		c.Retries = n

		return nil
	},
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Manage ghe CLI configuration including APIs and settings",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())
	cmd.AddCommand(newConfigAddAPICommand())
	cmd.AddCommand(newConfigClearCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current CLI configuration with tokens masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := maskTokens(loadConfig())

			return render(cmd, config, func(table *tablewriter.Table) {
				table.Header("Property", "Value")
				_ = table.Append("Output", config.Output)
				_ = table.Append("Current API", formatConfigValue(config.CurrentAPI))
				_ = table.Append("Cache", formatConfigValue(config.Cache))
				_ = table.Append("NATS URL", formatConfigValue(config.NATSURL))
				_ = table.Append("Rate Limit", strconv.Itoa(config.RateLimit))
				_ = table.Append("Retries", strconv.Itoa(config.Retries))

				for _, name := range sortedAPINames(config) {
					api := config.APIs[name]
					_ = table.Append("API "+name, api.Endpoint+" (token "+formatConfigValue(api.Token)+")")
				}
			})
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set one of: output, current_api, cache, nats_url, rate_limit, retries",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			setter, ok := globalSetters[key]
			if !ok {
				return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
			}

			config := loadConfig()

			err := setter(config, value)
			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return err
			}

			return outputConfigUpdateResult(cmd, "Set", key, value)
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			config := loadConfig()

			switch key {
			case "output":
				config.Output = ""
			case "current_api":
				config.CurrentAPI = ""
			case "cache":
				config.Cache = ""
			case "nats_url":
				config.NATSURL = ""
			case "rate_limit":
				config.RateLimit = 0
			case "retries":
				config.Retries = 0
			default:
				return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
			}

			err := saveConfigStruct(config)
			if err != nil {
				return err
			}

			return outputConfigUpdateResult(cmd, "Unset", key, "")
		},
	}
}

func newConfigAddAPICommand() *cobra.Command {
	var use bool

	cmd := &cobra.Command{
		Use:   "add-api NAME ENDPOINT",
		Short: "Register a GitHub Enterprise Server instance",
		Long:  "Add or replace a named API endpoint, e.g. 'ghe config add-api prod ghe.example.com'",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			endpoint, err := gheclient.NormalizeBaseURL(args[1])
			if err != nil {
				return fmt.Errorf("invalid API endpoint: %w", err)
			}

			config := loadConfig()

			api, ok := config.APIs[name]
			if !ok || api.Endpoint != endpoint {
				api = &APIConfig{Endpoint: endpoint}
			}

			config.APIs[name] = api

			if use || config.CurrentAPI == "" {
				config.CurrentAPI = name
			}

			err = saveConfigStruct(config)
			if err != nil {
				return err
			}

			return outputConfigUpdateResult(cmd, "Added", name, endpoint)
		},
	}

	cmd.Flags().BoolVar(&use, "use", false, "make this the current API")

	return cmd
}

func newConfigClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear configuration",
		Long:  "Remove the configuration file including stored tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile, err := configFilePath()
			if err != nil {
				return err
			}

			err = os.Remove(configFile)
			if err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove config file: %w", err)
			}

			return outputConfigUpdateResult(cmd, "Cleared", "all configuration", "")
		},
	}
}

// loadConfig reads the configuration through viper, so flags and GHE_*
// environment variables override the file.
func loadConfig() *Config {
	config := &Config{
		APIs:       make(map[string]*APIConfig),
		CurrentAPI: viper.GetString("current_api"),
		Output:     viper.GetString("output"),
		Cache:      viper.GetString("cache"),
		NATSURL:    viper.GetString("nats_url"),
		RateLimit:  viper.GetInt("rate_limit"),
		Retries:    viper.GetInt("retries"),
	}

	for name, raw := range viper.GetStringMap("apis") {
		apiMap, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}

		config.APIs[name] = parseAPIConfig(apiMap)
	}

	return config
}

func parseAPIConfig(apiMap map[string]interface{}) *APIConfig {
	api := &APIConfig{}

	if endpoint, ok := apiMap["endpoint"].(string); ok {
		api.Endpoint = endpoint
	}

	if token, ok := apiMap["token"].(string); ok {
		api.Token = token
	}

	api.TokenExpiresAt = parseTimestamp(apiMap["token_expires_at"])
	api.LastRefreshed = parseTimestamp(apiMap["last_refreshed"])

	return api
}

// parseTimestamp accepts both RFC 3339 strings and values yaml already
// decoded as timestamps.
func parseTimestamp(raw interface{}) *time.Time {
	switch v := raw.(type) {
	case time.Time:
		return &v
	case string:
		if v == "" {
			return nil
		}

		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil
		}

		return &t
	default:
		return nil
	}
}

func configFilePath() (string, error) {
	configFile := viper.ConfigFileUsed()
	if configFile != "" {
		return configFile, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".ghe", "config.yml"), nil
}

// saveConfigStruct writes config and reloads it into viper.
func saveConfigStruct(config *Config) error {
	configFile, err := configFilePath()
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(configFile), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	viper.SetConfigFile(configFile)

	err = viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("failed to reload config file: %w", err)
	}

	return nil
}

// resolveAPI finds the API named by nameOrEndpoint, falling back to the
// current API. An endpoint URL that is not in the config is returned under
// its host name with no token.
func resolveAPI(config *Config, nameOrEndpoint string) (string, *APIConfig, error) {
	if nameOrEndpoint == "" {
		nameOrEndpoint = config.CurrentAPI
	}

	if nameOrEndpoint == "" {
		return "", nil, constants.ErrNoBaseURLConfigured
	}

	if api, ok := config.APIs[nameOrEndpoint]; ok {
		return nameOrEndpoint, api, nil
	}

	endpoint, err := gheclient.NormalizeBaseURL(nameOrEndpoint)
	if err != nil {
		return "", nil, fmt.Errorf("invalid API endpoint: %w", err)
	}

	for name, api := range config.APIs {
		if api.Endpoint == endpoint {
			return name, api, nil
		}
	}

	return extractDomainFromEndpoint(endpoint), &APIConfig{Endpoint: endpoint}, nil
}

func extractDomainFromEndpoint(endpoint string) string {
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Host == "" {
		return endpoint
	}

	return parsed.Hostname()
}

func sortedAPINames(config *Config) []string {
	names := make([]string, 0, len(config.APIs))
	for name := range config.APIs {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func maskTokens(config *Config) *Config {
	masked := *config
	masked.APIs = make(map[string]*APIConfig, len(config.APIs))

	for name, api := range config.APIs {
		copied := *api
		if copied.Token != "" {
			copied.Token = Masked
		}

		masked.APIs[name] = &copied
	}

	return &masked
}

func formatConfigValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return NotSet
	}

	return value
}

func outputConfigUpdateResult(cmd *cobra.Command, action, key, value string) error {
	result := map[string]string{
		"action": action,
		"key":    key,
	}

	if value != "" {
		result["value"] = value
	}

	return render(cmd, result, func(table *tablewriter.Table) {
		table.Header("Property", "Value")
		_ = table.Append("Action", action)
		_ = table.Append("Key", key)

		if value != "" {
			_ = table.Append("Value", value)
		}
	})
}
