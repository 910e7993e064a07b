package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/ghe-client/internal/client"
	"github.com/fivetwenty-io/ghe-client/pkg/ghe"
)

// recorder remembers every request a fake server received.
type recorder struct {
	mu       sync.Mutex
	requests []*http.Request
}

func (r *recorder) record(req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.requests = append(r.requests, req.Clone(context.Background()))
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.requests)
}

func (r *recorder) at(i int) *http.Request {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.requests[i]
}

// servePaged writes the page of items selected by the page and per_page
// query parameters, with a rel="next" Link while more pages remain.
func servePaged[T any](w http.ResponseWriter, r *http.Request, items []T) {
	perPage := queryInt(r, "per_page", 30)
	page := queryInt(r, "page", 1)

	start := (page - 1) * perPage
	end := start + perPage

	batch := make([]T, 0)
	if start < len(items) {
		batch = items[start:min(end, len(items))]
	}

	if end < len(items) {
		next := "http://" + r.Host + r.URL.Path + "?page=" + strconv.Itoa(page+1) + "&per_page=" + strconv.Itoa(perPage)
		w.Header().Set("Link", `<`+next+`>; rel="next"`)
	}

	writeJSON(w, http.StatusOK, batch)
}

func queryInt(r *http.Request, name string, fallback int) int {
	value, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || value <= 0 {
		return fallback
	}

	return value
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeNotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"message":           "Not Found",
		"documentation_url": "https://docs.github.com/rest",
	})
}

// newTestClient starts server with handler and returns a client pointed at it.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*client.Client, *recorder) {
	t.Helper()

	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	c, err := client.New(context.Background(), &ghe.Config{
		BaseURL: server.URL,
		Token:   "test-token",
	})
	require.NoError(t, err)

	return c, rec
}

func numberedHooks(n int) []ghe.PreReceiveHook {
	hooks := make([]ghe.PreReceiveHook, 0, n)
	for i := 1; i <= n; i++ {
		hooks = append(hooks, ghe.PreReceiveHook{
			ID:          int64(i),
			Name:        "hook-" + strconv.Itoa(i),
			Enforcement: ghe.EnforcementDisabled,
			Script:      "scripts/check.sh",
		})
	}

	return hooks
}
