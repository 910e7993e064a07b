package ghe_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/ghe-client/pkg/ghe"
)

var errInterceptor = errors.New("interceptor failed")

// recordingLogger keeps every message it is given.
type recordingLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *recordingLogger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, level+" "+msg)
}

func (l *recordingLogger) Debug(msg string, fields map[string]interface{}) { l.log("debug", msg) }
func (l *recordingLogger) Info(msg string, fields map[string]interface{})  { l.log("info", msg) }
func (l *recordingLogger) Warn(msg string, fields map[string]interface{})  { l.log("warn", msg) }
func (l *recordingLogger) Error(msg string, fields map[string]interface{}) { l.log("error", msg) }

func TestInterceptorChain_RequestInterceptors(t *testing.T) {
	t.Parallel()

	chain := ghe.NewInterceptorChain()
	ctx := context.Background()

	var executionOrder []string

	chain.AddRequestInterceptor(func(ctx context.Context, req *ghe.Request) error {
		executionOrder = append(executionOrder, "first")

		return nil
	})

	chain.AddRequestInterceptor(func(ctx context.Context, req *ghe.Request) error {
		executionOrder = append(executionOrder, "second")

		return nil
	})

	err := chain.ExecuteRequestInterceptors(ctx, &ghe.Request{Method: "GET", Path: "/meta"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, executionOrder)
	assert.False(t, chain.Empty())
}

func TestInterceptorChain_StopsOnError(t *testing.T) {
	t.Parallel()

	chain := ghe.NewInterceptorChain()
	called := false

	chain.AddRequestInterceptor(func(ctx context.Context, req *ghe.Request) error {
		return errInterceptor
	})
	chain.AddRequestInterceptor(func(ctx context.Context, req *ghe.Request) error {
		called = true

		return nil
	})
	chain.AddResponseInterceptor(func(ctx context.Context, req *ghe.Request, resp *ghe.Response) error {
		return errInterceptor
	})

	err := chain.ExecuteRequestInterceptors(context.Background(), &ghe.Request{})
	require.ErrorIs(t, err, errInterceptor)
	assert.False(t, called)

	err = chain.ExecuteResponseInterceptors(context.Background(), &ghe.Request{}, &ghe.Response{})
	require.ErrorIs(t, err, errInterceptor)
}

func TestInterceptorChain_Nil(t *testing.T) {
	t.Parallel()

	var chain *ghe.InterceptorChain

	assert.True(t, chain.Empty())
	require.NoError(t, chain.ExecuteRequestInterceptors(context.Background(), &ghe.Request{}))
	require.NoError(t, chain.ExecuteResponseInterceptors(context.Background(), &ghe.Request{}, &ghe.Response{}))
	assert.True(t, ghe.NewInterceptorChain().Empty())
}

func TestHeaderInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := ghe.HeaderInterceptor(map[string]string{
		"X-Custom-Header": "custom-value",
		"X-Request-ID":    "12345",
	})

	req := &ghe.Request{Method: "GET", Path: "/admin/pre-receive-hooks"}

	err := interceptor(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "custom-value", req.Headers.Get("X-Custom-Header"))
	assert.Equal(t, "12345", req.Headers.Get("X-Request-ID"))
}

func TestLoggingInterceptors(t *testing.T) {
	t.Parallel()

	logger := &recordingLogger{}
	req := &ghe.Request{Method: "GET", Path: "/admin/pre-receive-hooks"}

	require.NoError(t, ghe.LoggingInterceptor(logger)(context.Background(), req))

	respond := ghe.LoggingResponseInterceptor(logger)
	require.NoError(t, respond(context.Background(), req, &ghe.Response{StatusCode: http.StatusOK}))
	require.NoError(t, respond(context.Background(), req, &ghe.Response{
		StatusCode: http.StatusNotFound,
		Error:      ghe.ErrNotFound,
	}))

	assert.Equal(t, []string{
		"debug sending request",
		"debug received response",
		"error request failed",
	}, logger.entries)
}

func TestRateLimiter(t *testing.T) {
	t.Parallel()

	t.Run("allows a burst then waits", func(t *testing.T) {
		t.Parallel()

		limiter := ghe.NewRateLimiter(20)
		ctx := context.Background()

		start := time.Now()

		for range 20 {
			require.NoError(t, limiter.Wait(ctx))
		}

		assert.Less(t, time.Since(start), 40*time.Millisecond)

		require.NoError(t, limiter.Wait(ctx))
		assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		t.Parallel()

		interceptor := ghe.RateLimitInterceptor(1)
		require.NoError(t, interceptor(context.Background(), &ghe.Request{}))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		err := interceptor(ctx, &ghe.Request{})
		require.ErrorIs(t, err, context.DeadlineExceeded)

		cancelled, cancelNow := context.WithCancel(context.Background())
		cancelNow()

		err = interceptor(cancelled, &ghe.Request{})
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("non-positive rate allows one per second", func(t *testing.T) {
		t.Parallel()

		limiter := ghe.NewRateLimiter(0)
		assert.InDelta(t, 1.0, float64(limiter.Limit()), 0.001)
		assert.Equal(t, 1, limiter.Burst())
	})
}

func TestMetricsCollector(t *testing.T) {
	t.Parallel()

	collector := ghe.NewMetricsCollector()

	var (
		mu      sync.Mutex
		changes []string
	)

	collector.SetOnChange(func(endpoint string, metrics ghe.Metrics) {
		mu.Lock()
		defer mu.Unlock()

		changes = append(changes, endpoint)
	})

	before := ghe.MetricsRequestInterceptor(collector)
	after := ghe.MetricsResponseInterceptor(collector)
	ctx := context.Background()

	for _, status := range []int{http.StatusOK, http.StatusOK, http.StatusInternalServerError} {
		req := &ghe.Request{Method: "GET", Path: "/admin/pre-receive-hooks"}

		require.NoError(t, before(ctx, req))
		time.Sleep(time.Millisecond)
		require.NoError(t, after(ctx, req, &ghe.Response{StatusCode: status}))
	}

	metrics := collector.GetMetrics("GET /admin/pre-receive-hooks")
	require.NotNil(t, metrics)
	assert.Equal(t, int64(3), metrics.TotalRequests)
	assert.Equal(t, int64(1), metrics.TotalErrors)
	assert.Positive(t, metrics.AverageLatency)
	assert.False(t, metrics.LastRequestTime.IsZero())
	assert.Len(t, changes, 3)

	metrics.TotalRequests = 100
	assert.Equal(t, int64(3), collector.GetMetrics("GET /admin/pre-receive-hooks").TotalRequests)

	assert.Nil(t, collector.GetMetrics("POST /unknown"))
}
