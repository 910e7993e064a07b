package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second
)

// Retry limits. Retries are disabled unless a caller opts in.
const (
	// DefaultRetryMax is the default maximum number of retries.
	DefaultRetryMax = 0

	// LowRetryMax is used when a caller asks for retries without a count.
	LowRetryMax = 3

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second

	// ExtendedRetryWaitMax is used for operations that need longer waits.
	ExtendedRetryWaitMax = 30 * time.Second
)

// Pagination.
const (
	// DefaultPageSize is the page size GitHub uses when per_page is absent.
	DefaultPageSize = 30

	// StandardPageSize is the page size used by the CLI.
	StandardPageSize = 50

	// FirstPage is the page number pagination starts at.
	FirstPage = 1
)

// Time intervals and delays.
const (
	// DefaultPollInterval is used for polling operations.
	DefaultPollInterval = 2 * time.Second

	// DefaultDownloadPollTimeout bounds how long environment downloads are polled.
	DefaultDownloadPollTimeout = 10 * time.Minute
)

// Cache defaults.
const (
	// DefaultCacheSize is the default number of entries held by the memory cache.
	DefaultCacheSize = 1000

	// DefaultCacheTTL is how long a conditional-request entry is kept.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultNATSBucket is the JetStream KV bucket used by the NATS cache.
	DefaultNATSBucket = "ghe-client-cache"
)

// Media types and protocol headers.
const (
	// MediaTypeJSON is the plain JSON media type.
	MediaTypeJSON = "application/json"

	// MediaTypeV3 is the default GitHub REST media type.
	MediaTypeV3 = "application/vnd.github.v3+json"

	// MediaTypePreReceivePreview is the preview media type for the pre-receive APIs.
	MediaTypePreReceivePreview = "application/vnd.github.eye-scream-preview"

	// MediaTypeOctetStream is used for raw binary payloads.
	MediaTypeOctetStream = "application/octet-stream"

	// DefaultAPIVersion is sent in the X-GitHub-Api-Version header.
	DefaultAPIVersion = "2022-11-28"

	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "ghe-client/1.0"
)

// Header names.
const (
	HeaderAccept             = "Accept"
	HeaderAuthorization      = "Authorization"
	HeaderContentType        = "Content-Type"
	HeaderUserAgent          = "User-Agent"
	HeaderAPIVersion         = "X-GitHub-Api-Version"
	HeaderLink               = "Link"
	HeaderETag               = "ETag"
	HeaderIfNoneMatch        = "If-None-Match"
	HeaderRetryAfter         = "Retry-After"
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

// Pre-receive environment download states.
const (
	DownloadStateNotStarted = "not_started"
	DownloadStateInProgress = "in_progress"
	DownloadStateSuccess    = "success"
	DownloadStateFailed     = "failed"
)

// Output formats.
const (
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatTable = "table"

	// JSONIndentSize is the indent used for YAML and JSON output.
	JSONIndentSize = 2
)

// Display.
const (
	// DateTimeFormat is used for timestamps in tables.
	DateTimeFormat = "2006-01-02 15:04:05"

	// BooleanTrue and BooleanFalse are used in tables.
	BooleanTrue  = "true"
	BooleanFalse = "false"
)
