package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/ghe-client/internal/auth"
	"github.com/fivetwenty-io/ghe-client/internal/client"
	"github.com/fivetwenty-io/ghe-client/internal/constants"
	"github.com/fivetwenty-io/ghe-client/pkg/ghe"
	"github.com/fivetwenty-io/ghe-client/pkg/gheclient"
)

// tokenExpiryWarning is how early an expiring token is reported.
const tokenExpiryWarning = 7 * 24 * time.Hour

// CreateClient builds a client for the API selected by --api, GHE_API or
// the current API of the config file. A --token flag or GHE_TOKEN overrides
// the stored token without persisting it.
func CreateClient(cmd *cobra.Command) (ghe.Client, error) {
	config := loadConfig()

	name, apiConfig, err := resolveAPI(config, viper.GetString("api"))
	if err != nil {
		return nil, err
	}

	baseURL, err := gheclient.NormalizeBaseURL(apiConfig.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid API endpoint for '%s': %w", name, err)
	}

	gheConfig, err := buildGHEConfig(cmd, config, baseURL)
	if err != nil {
		return nil, err
	}

	tokenManager := createTokenManager(name, apiConfig)

	if stored, ok := tokenManager.(*auth.ConfigTokenManager); ok && apiConfig.TokenExpiresAt != nil && stored.IsTokenExpiringSoon(tokenExpiryWarning) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: the token for '%s' expires at %s\n", name, formatTime(apiConfig.TokenExpiresAt))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	c, err := client.NewWithTokenManager(ctx, gheConfig, tokenManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return c, nil
}

func createTokenManager(name string, apiConfig *APIConfig) auth.TokenManager {
	if token := viper.GetString("token"); token != "" {
		return auth.NewStaticTokenManager(token)
	}

	var expiresAt time.Time
	if apiConfig.TokenExpiresAt != nil {
		expiresAt = *apiConfig.TokenExpiresAt
	}

	return auth.NewConfigTokenManager(NewConfigPersister(), name, apiConfig.Token, expiresAt)
}

func buildGHEConfig(cmd *cobra.Command, config *Config, baseURL string) (*ghe.Config, error) {
	gheConfig := &ghe.Config{
		BaseURL:   baseURL,
		UserAgent: "ghe-cli/" + current.version,
		RateLimit: config.RateLimit,
		RetryMax:  config.Retries,
		Metrics:   current.metrics,
	}

	if viper.GetBool("verbose") {
		logger, err := ghe.NewLogger(&ghe.LogConfig{Level: "debug", Output: cmd.ErrOrStderr()})
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}

		gheConfig.Logger = ghe.NewZerologLogger(logger)
		gheConfig.Debug = true
	}

	cache, err := buildCacheConfig(config)
	if err != nil {
		return nil, err
	}

	gheConfig.Cache = cache

	return gheConfig, nil
}

// buildCacheConfig maps the cache setting to a response cache. "nats" layers
// a memory cache in front of the shared bucket.
func buildCacheConfig(config *Config) (*ghe.CacheConfig, error) {
	switch ghe.CacheType(config.Cache) {
	case "", ghe.CacheTypeNone:
		return nil, nil
	case ghe.CacheTypeMemory:
		return ghe.DefaultCacheConfig(), nil
	case ghe.CacheTypeNATS:
		if config.NATSURL == "" {
			return nil, fmt.Errorf("%w: set nats_url", ghe.ErrNATSConfigRequired)
		}

		cache := ghe.DefaultCacheConfig()
		cache.Type = ghe.CacheTypeNATS
		cache.NATS = &ghe.NATSKVConfig{
			URL:    config.NATSURL,
			Bucket: constants.DefaultNATSBucket,
			TTL:    constants.DefaultCacheTTL,
		}

		return cache, nil
	default:
		return nil, fmt.Errorf("%w: %s", ghe.ErrUnsupportedCacheType, config.Cache)
	}
}
