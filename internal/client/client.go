package client

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/ghe-client/internal/auth"
	"github.com/fivetwenty-io/ghe-client/internal/constants"
	"github.com/fivetwenty-io/ghe-client/internal/http"
	"github.com/fivetwenty-io/ghe-client/pkg/ghe"
)

// Client implements the ghe.Client interface.
type Client struct {
	httpClient   *http.Client
	tokenManager auth.TokenManager
	baseURL      string
	logger       ghe.Logger
	encoder      *ghe.ParameterEncoder
	validator    *ghe.Validator

	// Resource clients
	preReceiveHooks        *PreReceiveHooksClient
	preReceiveEnvironments *PreReceiveEnvironmentsClient
	releases               *ReleasesClient
}

// New creates a client authenticated with config.Token.
func New(ctx context.Context, config *ghe.Config) (*Client, error) {
	if config == nil {
		return nil, ghe.ErrConfigRequired
	}

	return NewWithTokenManager(ctx, config, auth.NewStaticTokenManager(config.Token))
}

// NewWithTokenManager creates a client that takes credentials from tokenManager.
func NewWithTokenManager(ctx context.Context, config *ghe.Config, tokenManager auth.TokenManager) (*Client, error) {
	if config == nil {
		return nil, ghe.ErrConfigRequired
	}

	if config.BaseURL == "" {
		return nil, ghe.ErrAPIEndpointRequired
	}

	httpOpts, err := createHTTPClientOptions(ctx, config)
	if err != nil {
		return nil, err
	}

	client := &Client{
		httpClient:   http.NewClient(config.BaseURL, tokenManager, httpOpts...),
		tokenManager: tokenManager,
		baseURL:      config.BaseURL,
		logger:       config.Logger,
		encoder:      ghe.NewParameterEncoder(),
		validator:    ghe.NewValidator(),
	}

	client.initializeResourceClients()

	return client, nil
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(ctx context.Context, config *ghe.Config) ([]http.Option, error) {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent), http.WithAPIVersion(config.APIVersion))

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithHTTPTimeout(config.HTTPTimeout))
	}

	if config.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.ExtendedRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	chain := createInterceptorChain(config)
	if !chain.Empty() {
		httpOpts = append(httpOpts, http.WithInterceptors(chain))
	}

	if config.Cache != nil && config.Cache.Type != ghe.CacheTypeNone {
		cache, err := ghe.NewCacheFromConfig(ctx, config.Cache)
		if err != nil {
			return nil, fmt.Errorf("creating response cache: %w", err)
		}

		httpOpts = append(httpOpts, http.WithResponseCache(ghe.NewCacheManager(cache, config.Cache.Options)))
	}

	return httpOpts, nil
}

// createInterceptorChain collects the interceptors config asks for. The rate
// limiter runs first so that waiting is not counted as request latency.
func createInterceptorChain(config *ghe.Config) *ghe.InterceptorChain {
	chain := ghe.NewInterceptorChain()

	if config.RateLimit > 0 {
		chain.AddRequestInterceptor(ghe.RateLimitInterceptor(config.RateLimit))
	}

	if len(config.Headers) > 0 {
		chain.AddRequestInterceptor(ghe.HeaderInterceptor(config.Headers))
	}

	if config.Logger != nil {
		chain.AddRequestInterceptor(ghe.LoggingInterceptor(config.Logger))
		chain.AddResponseInterceptor(ghe.LoggingResponseInterceptor(config.Logger))
	}

	if config.Metrics != nil {
		chain.AddRequestInterceptor(ghe.MetricsRequestInterceptor(config.Metrics))
		chain.AddResponseInterceptor(ghe.MetricsResponseInterceptor(config.Metrics))
	}

	return chain
}

// initializeResourceClients initializes all resource-specific clients.
func (c *Client) initializeResourceClients() {
	c.preReceiveHooks = NewPreReceiveHooksClient(c.httpClient, c.encoder, c.validator)
	c.preReceiveEnvironments = NewPreReceiveEnvironmentsClient(c.httpClient, c.encoder, c.validator)
	c.releases = NewReleasesClient(c.httpClient, c.validator)
}

// PreReceiveHooks implements ghe.Client.PreReceiveHooks.
func (c *Client) PreReceiveHooks() ghe.PreReceiveHooksClient {
	return c.preReceiveHooks
}

// PreReceiveEnvironments implements ghe.Client.PreReceiveEnvironments.
func (c *Client) PreReceiveEnvironments() ghe.PreReceiveEnvironmentsClient {
	return c.preReceiveEnvironments
}

// Releases implements ghe.Client.Releases.
func (c *Client) Releases() ghe.ReleasesClient {
	return c.releases
}

// ClearCaches implements ghe.Client.ClearCaches.
func (c *Client) ClearCaches(ctx context.Context) error {
	c.encoder.Reset()

	err := c.httpClient.ClearCaches(ctx)
	if err != nil {
		return fmt.Errorf("clearing response cache: %w", err)
	}

	return nil
}

// Close implements ghe.Client.Close.
func (c *Client) Close() error {
	err := c.httpClient.Close()
	if err != nil {
		return fmt.Errorf("closing response cache: %w", err)
	}

	return nil
}

// GetTokenManager returns the token manager for this client.
func (c *Client) GetTokenManager() auth.TokenManager {
	return c.tokenManager
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}
