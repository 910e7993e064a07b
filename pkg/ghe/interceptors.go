package ghe

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Request is what interceptors see of an outgoing request. Path is the
// resolved URL path; header changes are sent.
type Request struct {
	Method   string
	Path     string
	Headers  http.Header
	Body     []byte
	Metadata map[string]interface{}
}

// Response is what interceptors see of a finished exchange. Error is set
// when nothing was received or the status classified as a failure.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Error      error
}

type (
	// RequestInterceptor inspects or modifies a request before it is sent.
	RequestInterceptor func(ctx context.Context, req *Request) error
	// ResponseInterceptor observes a finished exchange.
	ResponseInterceptor func(ctx context.Context, req *Request, resp *Response) error
)

// InterceptorChain runs interceptors in the order they were added. A nil
// chain is empty.
type InterceptorChain struct {
	before []RequestInterceptor
	after  []ResponseInterceptor
}

// NewInterceptorChain creates an empty chain.
func NewInterceptorChain() *InterceptorChain {
	return &InterceptorChain{}
}

// AddRequestInterceptor appends a request interceptor.
func (c *InterceptorChain) AddRequestInterceptor(interceptor RequestInterceptor) {
	c.before = append(c.before, interceptor)
}

// AddResponseInterceptor appends a response interceptor.
func (c *InterceptorChain) AddResponseInterceptor(interceptor ResponseInterceptor) {
	c.after = append(c.after, interceptor)
}

// Empty reports whether the chain has no interceptors.
func (c *InterceptorChain) Empty() bool {
	return c == nil || len(c.before)+len(c.after) == 0
}

// ExecuteRequestInterceptors stops at the first failing interceptor; the
// request is then not sent.
func (c *InterceptorChain) ExecuteRequestInterceptors(ctx context.Context, req *Request) error {
	if c == nil {
		return nil
	}

	for i, interceptor := range c.before {
		if err := interceptor(ctx, req); err != nil {
			return fmt.Errorf("request interceptor %d: %w", i, err)
		}
	}

	return nil
}

// ExecuteResponseInterceptors stops at the first failing interceptor.
func (c *InterceptorChain) ExecuteResponseInterceptors(ctx context.Context, req *Request, resp *Response) error {
	if c == nil {
		return nil
	}

	for i, interceptor := range c.after {
		if err := interceptor(ctx, req, resp); err != nil {
			return fmt.Errorf("response interceptor %d: %w", i, err)
		}
	}

	return nil
}

// LoggingInterceptor logs each request at debug level.
func LoggingInterceptor(logger Logger) RequestInterceptor {
	return func(_ context.Context, req *Request) error {
		logger.Debug("sending request", map[string]interface{}{"method": req.Method, "path": req.Path})

		return nil
	}
}

// LoggingResponseInterceptor logs failures at error level and everything
// else at debug level.
func LoggingResponseInterceptor(logger Logger) ResponseInterceptor {
	return func(_ context.Context, req *Request, resp *Response) error {
		fields := map[string]interface{}{
			"method": req.Method,
			"path":   req.Path,
			"status": resp.StatusCode,
		}

		if resp.Error == nil {
			logger.Debug("received response", fields)

			return nil
		}

		fields["error"] = resp.Error.Error()
		logger.Error("request failed", fields)

		return nil
	}
}

// HeaderInterceptor sets fixed headers, overriding earlier values.
func HeaderInterceptor(headers map[string]string) RequestInterceptor {
	return func(_ context.Context, req *Request) error {
		if req.Headers == nil {
			req.Headers = make(http.Header, len(headers))
		}

		for name, value := range headers {
			req.Headers.Set(name, value)
		}

		return nil
	}
}

// NewRateLimiter allows requestsPerSecond requests per second with bursts of
// the same size. A non-positive rate allows one request per second.
func NewRateLimiter(requestsPerSecond int) *rate.Limiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}

	return rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
}

// RateLimitInterceptor holds each request until the limiter admits it. A wait
// that would outlast the context deadline fails with context.DeadlineExceeded.
func RateLimitInterceptor(requestsPerSecond int) RequestInterceptor {
	limiter := NewRateLimiter(requestsPerSecond)

	return func(ctx context.Context, _ *Request) error {
		err := limiter.Wait(ctx)
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
		}

		return err
	}
}

// Metrics are the counters kept per endpoint.
type Metrics struct {
	TotalRequests   int64
	TotalErrors     int64
	TotalLatency    time.Duration
	AverageLatency  time.Duration
	LastRequestTime time.Time
}

// MetricsCollector aggregates request metrics keyed by "METHOD path". It is
// safe for concurrent use; onChange receives a copy after every update.
type MetricsCollector struct {
	mu       sync.Mutex
	byKey    map[string]*Metrics
	onChange func(endpoint string, metrics Metrics)
}

// NewMetricsCollector creates an empty collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{byKey: make(map[string]*Metrics)}
}

// SetOnChange registers fn to receive a snapshot after every update.
func (m *MetricsCollector) SetOnChange(fn func(endpoint string, metrics Metrics)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onChange = fn
}

// GetMetrics returns a snapshot for endpoint, or nil if it was never called.
func (m *MetricsCollector) GetMetrics(endpoint string) *Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.byKey[endpoint]
	if !ok {
		return nil
	}

	snapshot := *current

	return &snapshot
}

func (m *MetricsCollector) record(endpoint string, latency time.Duration, failed bool) {
	m.mu.Lock()

	current, ok := m.byKey[endpoint]
	if !ok {
		current = &Metrics{}
		m.byKey[endpoint] = current
	}

	current.TotalRequests++
	current.LastRequestTime = time.Now()
	current.TotalLatency += latency
	current.AverageLatency = current.TotalLatency / time.Duration(current.TotalRequests)

	if failed {
		current.TotalErrors++
	}

	snapshot, notify := *current, m.onChange

	m.mu.Unlock()

	if notify != nil {
		notify(endpoint, snapshot)
	}
}

const startTimeKey = "start_time"

// MetricsRequestInterceptor stamps the request start time. Pair it with
// MetricsResponseInterceptor on the same collector.
func MetricsRequestInterceptor(_ *MetricsCollector) RequestInterceptor {
	return func(_ context.Context, req *Request) error {
		if req.Metadata == nil {
			req.Metadata = make(map[string]interface{}, 1)
		}

		req.Metadata[startTimeKey] = time.Now()

		return nil
	}
}

// MetricsResponseInterceptor counts the exchange. Statuses from 400 up and
// transport failures count as errors.
func MetricsResponseInterceptor(collector *MetricsCollector) ResponseInterceptor {
	return func(_ context.Context, req *Request, resp *Response) error {
		var latency time.Duration
		if started, ok := req.Metadata[startTimeKey].(time.Time); ok {
			latency = time.Since(started)
		}

		failed := resp.Error != nil || resp.StatusCode >= http.StatusBadRequest
		collector.record(req.Method+" "+req.Path, latency, failed)

		return nil
	}
}
