package gheclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/fivetwenty-io/ghe-client/internal/client"
	"github.com/fivetwenty-io/ghe-client/pkg/ghe"
)

// APIPath is the REST root of a GitHub Enterprise Server instance.
const APIPath = "/api/v3"

// New creates a new GitHub Enterprise API client. The caller's config is not
// modified.
func New(ctx context.Context, config *ghe.Config) (ghe.Client, error) {
	if config == nil {
		return nil, ghe.ErrConfigRequired
	}

	baseURL, err := NormalizeBaseURL(config.BaseURL)
	if err != nil {
		return nil, err
	}

	normalized := *config
	normalized.BaseURL = baseURL

	c, err := client.New(ctx, &normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// NormalizeBaseURL adds "https://" when raw has no scheme and appends the
// REST root when it has no path.
func NormalizeBaseURL(raw string) (string, error) {
	endpoint := strings.TrimSuffix(strings.TrimSpace(raw), "/")
	if endpoint == "" {
		return "", ghe.ErrAPIEndpointRequired
	}

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	if parsed.Host == "" {
		return "", fmt.Errorf("%w: %s", ghe.ErrNoHostInURL, raw)
	}

	if parsed.Path == "" {
		parsed.Path = APIPath
	}

	return parsed.String(), nil
}

// NewWithEndpoint creates a new client with just an API endpoint (no auth).
func NewWithEndpoint(ctx context.Context, endpoint string) (ghe.Client, error) {
	return New(ctx, &ghe.Config{
		BaseURL: endpoint,
	})
}

// NewWithToken creates a new client with an API endpoint and access token.
func NewWithToken(ctx context.Context, endpoint, token string) (ghe.Client, error) {
	return New(ctx, &ghe.Config{
		BaseURL: endpoint,
		Token:   token,
	})
}
