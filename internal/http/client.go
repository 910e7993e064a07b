package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fivetwenty-io/ghe-client/internal/auth"
	"github.com/fivetwenty-io/ghe-client/internal/constants"
	"github.com/fivetwenty-io/ghe-client/pkg/ghe"
	"github.com/hashicorp/go-retryablehttp"
)

// Request is one logical call. Path is either a path relative to the base
// URL or an absolute http(s) URL, such as a Link header continuation.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    interface{}
	Headers map[string]string
	// Accept overrides the default media type for this call only.
	Accept string
}

// RequestOption adjusts a Request built by the verb helpers.
type RequestOption func(*Request)

// WithAccept sets the Accept header of one call.
func WithAccept(mediaType string) RequestOption {
	return func(r *Request) {
		r.Accept = mediaType
	}
}

// WithHeader sets an extra header on one call.
func WithHeader(name, value string) RequestOption {
	return func(r *Request) {
		if r.Headers == nil {
			r.Headers = make(map[string]string)
		}

		r.Headers[name] = value
	}
}

// Response is the envelope of one exchange.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	// FromCache is set when a 304 was answered from the response cache.
	FromCache bool
}

// NextPageLink returns the rel="next" URL of the Link header, or "".
func (r *Response) NextPageLink() string {
	if r == nil {
		return ""
	}

	return NextLink(r.Headers)
}

// Client executes requests against the GitHub Enterprise REST API.
type Client struct {
	baseURL      *url.URL
	httpClient   *retryablehttp.Client
	tokenManager auth.TokenManager
	logger       ghe.Logger
	debug        bool
	userAgent    string
	apiVersion   string
	interceptors *ghe.InterceptorChain
	cache        *ghe.CacheManager
	codec        *Codec
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger ghe.Logger) Option {
	return func(c *Client) {
		c.logger = logger
		c.httpClient.Logger = leveledLogger{logger: logger}
	}
}

// WithDebug enables request and response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithRetryConfig enables transport retries of idempotent requests.
func WithRetryConfig(maxRetries int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = maxRetries
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// WithHTTPTimeout bounds each exchange.
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient.HTTPClient = httpClient
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithAPIVersion sets the X-GitHub-Api-Version header.
func WithAPIVersion(version string) Option {
	return func(c *Client) {
		if version != "" {
			c.apiVersion = version
		}
	}
}

// WithInterceptors runs chain around every exchange.
func WithInterceptors(chain *ghe.InterceptorChain) Option {
	return func(c *Client) {
		c.interceptors = chain
	}
}

// WithResponseCache enables conditional GET requests.
func WithResponseCache(cache *ghe.CacheManager) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// NewClient creates a client for baseURL. A nil tokenManager sends requests
// unauthenticated.
func NewClient(baseURL string, tokenManager auth.TokenManager, opts ...Option) *Client {
	parsedURL, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil || parsedURL == nil {
		parsedURL = &url.URL{}
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = constants.DefaultRetryMax
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.CheckRetry = checkRetry
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	retryClient.Logger = nil

	client := &Client{
		baseURL:      parsedURL,
		httpClient:   retryClient,
		tokenManager: tokenManager,
		userAgent:    constants.DefaultUserAgent,
		apiVersion:   constants.DefaultAPIVersion,
		codec:        NewCodec(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Codec returns the response codec.
func (c *Client) Codec() *Codec {
	return c.codec
}

// ClearCaches drops memoized media types and cached responses.
func (c *Client) ClearCaches(ctx context.Context) error {
	c.codec.Reset()

	if c.cache == nil {
		return nil
	}

	return c.cache.Clear(ctx)
}

// Close releases the response cache backend.
func (c *Client) Close() error {
	if c.cache == nil {
		return nil
	}

	return c.cache.Close()
}

// Do performs exactly one logical exchange. Non-2xx statuses come back as a
// *ghe.Error together with the response envelope. Missing arguments fail
// before anything is sent.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, ghe.NewArgumentError("request", "is required")
	}

	if req.Method == "" {
		return nil, ghe.NewArgumentError("method", "is required")
	}

	fullURL, err := c.resolve(req.Path, req.Query)
	if err != nil {
		return nil, err
	}

	body, contentType, err := EncodeBody(req.Body)
	if err != nil {
		return nil, ghe.NewArgumentError("body", err.Error())
	}

	headers, err := c.buildHeaders(ctx, req, contentType)
	if err != nil {
		return nil, err
	}

	cacheKey, cached := c.lookupCached(ctx, req.Method, fullURL, headers)
	if cached != nil {
		headers.Set(constants.HeaderIfNoneMatch, cached.ETag)
	}

	intercepted := &ghe.Request{Method: req.Method, Path: fullURL.Path, Headers: headers, Body: body}

	err = c.interceptors.ExecuteRequestInterceptors(ctx, intercepted)
	if err != nil {
		return nil, interceptorError(err)
	}

	resp, err := c.exchange(ctx, intercepted, fullURL)

	interceptedResp := &ghe.Response{Error: err}
	if resp != nil {
		interceptedResp.StatusCode = resp.StatusCode
		interceptedResp.Headers = resp.Headers
		interceptedResp.Body = resp.Body
	}

	if err != nil {
		_ = c.interceptors.ExecuteResponseInterceptors(ctx, intercepted, interceptedResp)

		return nil, err
	}

	if resp.StatusCode == http.StatusNotModified && cached != nil {
		resp.StatusCode = http.StatusOK
		resp.Body = cached.Data
		resp.FromCache = true

		if resp.Headers == nil {
			resp.Headers = make(http.Header)
		}

		if resp.Headers.Get(constants.HeaderContentType) == "" && cached.ContentType != "" {
			resp.Headers.Set(constants.HeaderContentType, cached.ContentType)
		}

		if len(resp.Headers.Values(constants.HeaderLink)) == 0 && len(cached.Link) > 0 {
			resp.Headers[constants.HeaderLink] = append([]string(nil), cached.Link...)
		}
	}

	var apiErr error
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr = ghe.Classify(resp.StatusCode, resp.Headers, resp.Body)
		interceptedResp.Error = apiErr
	}

	err = c.interceptors.ExecuteResponseInterceptors(ctx, intercepted, interceptedResp)
	if err != nil && apiErr == nil {
		return resp, interceptorError(err)
	}

	if apiErr != nil {
		return resp, apiErr
	}

	c.storeCached(ctx, cacheKey, resp)

	return resp, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, newRequest(http.MethodGet, path, query, nil, opts))
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body interface{}, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, newRequest(http.MethodPost, path, nil, body, opts))
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, path string, body interface{}, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, newRequest(http.MethodPut, path, nil, body, opts))
}

// Patch performs a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body interface{}, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, newRequest(http.MethodPatch, path, nil, body, opts))
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, newRequest(http.MethodDelete, path, nil, nil, opts))
}

func newRequest(method, path string, query url.Values, body interface{}, opts []RequestOption) *Request {
	req := &Request{Method: method, Path: path, Query: query, Body: body}
	for _, opt := range opts {
		opt(req)
	}

	return req
}

// resolve joins a relative path onto the base URL, or accepts an absolute
// http(s) URL as is. Query values are merged into the result.
func (c *Client) resolve(path string, query url.Values) (*url.URL, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ghe.NewArgumentError("path", "is required")
	}

	ref, err := url.Parse(path)
	if err != nil {
		return nil, ghe.NewArgumentError("path", err.Error())
	}

	var resolved url.URL

	if ref.IsAbs() {
		if ref.Scheme != "http" && ref.Scheme != "https" {
			return nil, ghe.NewArgumentError("path", "unsupported scheme "+ref.Scheme)
		}

		resolved = *ref
	} else {
		escaped := ref.EscapedPath()
		if !strings.HasPrefix(escaped, "/") {
			escaped = "/" + escaped
			ref.Path = "/" + ref.Path
		}

		// RawPath keeps escaped separators such as %2F inside a segment.
		resolved = *c.baseURL
		resolved.Path = strings.TrimSuffix(c.baseURL.Path, "/") + ref.Path
		resolved.RawPath = strings.TrimSuffix(c.baseURL.EscapedPath(), "/") + escaped
		resolved.RawQuery = ref.RawQuery
	}

	if len(query) > 0 {
		values := resolved.Query()
		for key, vals := range query {
			values[key] = vals
		}

		resolved.RawQuery = values.Encode()
	}

	return &resolved, nil
}

func (c *Client) buildHeaders(ctx context.Context, req *Request, contentType string) (http.Header, error) {
	headers := make(http.Header)

	accept := req.Accept
	if accept == "" {
		accept = constants.MediaTypeV3
	}

	headers.Set(constants.HeaderAccept, accept)
	headers.Set(constants.HeaderUserAgent, c.userAgent)
	headers.Set(constants.HeaderAPIVersion, c.apiVersion)

	if contentType != "" {
		headers.Set(constants.HeaderContentType, contentType)
	}

	if c.tokenManager != nil {
		token, err := c.tokenManager.GetToken(ctx)
		if err != nil {
			return nil, &ghe.Error{Kind: ghe.KindUnauthorized, Message: "obtaining token", Cause: err}
		}

		if token != "" {
			headers.Set(constants.HeaderAuthorization, "token "+token)
		}
	}

	for name, value := range req.Headers {
		headers.Set(name, value)
	}

	return headers, nil
}

// exchange sends the request through the transport. Anything that prevents a
// response from arriving, cancellation included, is a TransportFailure.
func (c *Client) exchange(ctx context.Context, req *ghe.Request, target *url.URL) (*Response, error) {
	var body interface{}
	if len(req.Body) > 0 {
		body = req.Body
	}

	httpReq, err := retryablehttp.NewRequestWithContext(withMethod(ctx, req.Method), req.Method, target.String(), body)
	if err != nil {
		return nil, ghe.NewArgumentError("request", err.Error())
	}

	httpReq.Header = req.Headers

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method": req.Method,
			"url":    target.String(),
		})
	}

	start := time.Now()

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if httpResp != nil {
			_ = httpResp.Body.Close()
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ghe.NewTransportError(ctxErr)
		}

		return nil, ghe.NewTransportError(err)
	}

	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, ghe.NewTransportError(fmt.Errorf("reading response body: %w", err))
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"status":   httpResp.StatusCode,
			"url":      target.String(),
			"duration": time.Since(start).String(),
		})
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
	}, nil
}

func (c *Client) lookupCached(ctx context.Context, method string, target *url.URL, headers http.Header) (string, *ghe.CacheEntry) {
	if c.cache == nil || method != http.MethodGet {
		return "", nil
	}

	query := target.Query()
	query.Set("accept", headers.Get(constants.HeaderAccept))

	key := c.cache.GetCacheKey(method, target.Host+target.EscapedPath(), query)

	entry, err := c.cache.Lookup(ctx, key)
	if err != nil || entry.ETag == "" {
		return key, nil
	}

	return key, entry
}

func (c *Client) storeCached(ctx context.Context, key string, resp *Response) {
	if key == "" || resp.FromCache || resp.StatusCode != http.StatusOK {
		return
	}

	etag := resp.Headers.Get(constants.HeaderETag)
	if etag == "" {
		return
	}

	err := c.cache.Store(ctx, key, &ghe.CacheEntry{
		Data:        resp.Body,
		ETag:        etag,
		ContentType: resp.Headers.Get(constants.HeaderContentType),
		Link:        resp.Headers.Values(constants.HeaderLink),
	}, 0)
	if err != nil && c.logger != nil {
		c.logger.Warn("failed to cache response", map[string]interface{}{"error": err.Error()})
	}
}

func interceptorError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ghe.NewTransportError(err)
	}

	return err
}

type methodKey struct{}

func withMethod(ctx context.Context, method string) context.Context {
	return context.WithValue(ctx, methodKey{}, method)
}

// checkRetry only lets idempotent requests be retried, so a retry can never
// duplicate a write.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	method, _ := ctx.Value(methodKey{}).(string)
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
	default:
		return false, nil
	}

	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// leveledLogger adapts ghe.Logger to retryablehttp.LeveledLogger.
type leveledLogger struct {
	logger ghe.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, toFields(keysAndValues))
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, toFields(keysAndValues))
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, toFields(keysAndValues))
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, toFields(keysAndValues))
}

func toFields(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}

	return fields
}
