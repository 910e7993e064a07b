package ghe

import (
	"context"
	"time"
)

// EnterpriseClients provides access to the GitHub Enterprise administration clients.
type EnterpriseClients interface {
	PreReceiveHooks() PreReceiveHooksClient
	PreReceiveEnvironments() PreReceiveEnvironmentsClient
}

// RepositoryClients provides access to repository-scoped clients.
type RepositoryClients interface {
	Releases() ReleasesClient
}

// Client is the root client returned by gheclient.New.
type Client interface {
	EnterpriseClients
	RepositoryClients

	// ClearCaches drops memoized derived metadata and cached responses.
	ClearCaches(ctx context.Context) error

	// Close releases the response cache backend, such as a NATS connection.
	Close() error
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config represents client configuration for building a ghe.Client.
//
// # Authentication
//
// Token is sent as "Authorization: token <Token>". Callers that manage
// credentials themselves can pass a token manager to client.NewWithTokenManager
// instead. Without a token requests are sent unauthenticated.
//
// # Timeouts, retries and caching
//
// Per-request deadlines should be set on the context passed to each call;
// HTTPTimeout only bounds a single exchange at the transport. Every call makes
// exactly one exchange unless RetryMax is set, in which case idempotent
// requests that fail with a connection error, 429 or 5xx are retried by the
// transport. Cache enables conditional GET requests backed by memory or NATS
// KV storage.
type Config struct {
	// BaseURL: root of the REST API, e.g. "https://ghe.example.com/api/v3".
	// gheclient.New adds "https://" when no scheme is present and appends
	// "/api/v3" when the URL has no path.
	BaseURL string

	// Token: personal access token or installation token.
	Token string

	// APIVersion: value of the X-GitHub-Api-Version header.
	APIVersion string

	// HTTPTimeout: timeout of a single HTTP exchange.
	HTTPTimeout time.Duration
	// RetryMax: transport retries for idempotent requests. 0 disables retries.
	RetryMax int
	// RetryWaitMin: minimum backoff between retries.
	RetryWaitMin time.Duration
	// RetryWaitMax: maximum backoff between retries.
	RetryWaitMax time.Duration

	// RateLimit: client-side requests per second. 0 disables the limiter.
	RateLimit int

	// Debug: enables request/response logging when a Logger is provided.
	Debug bool
	// Logger: optional structured logger used by the HTTP layer.
	Logger Logger
	// UserAgent: overrides the default User-Agent header.
	UserAgent string

	// Headers: extra headers sent with every request.
	Headers map[string]string
	// Metrics: optional per-endpoint request metrics.
	Metrics *MetricsCollector

	// Cache: optional conditional-request cache. Nil disables it.
	Cache *CacheConfig
}
