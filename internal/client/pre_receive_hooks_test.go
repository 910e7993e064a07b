package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/ghe-client/internal/constants"
	"github.com/fivetwenty-io/ghe-client/pkg/ghe"
)

func hookIDs(hooks []ghe.PreReceiveHook) []int64 {
	ids := make([]int64, 0, len(hooks))
	for _, hook := range hooks {
		ids = append(ids, hook.ID)
	}

	return ids
}

func TestPreReceiveHooksClient_List(t *testing.T) {
	t.Parallel()

	hooks := numberedHooks(5)
	handler := func(w http.ResponseWriter, r *http.Request) {
		servePaged(w, r, hooks)
	}

	tests := []struct {
		name     string
		opts     *ghe.ListOptions
		wantIDs  []int64
		requests int
	}{
		{
			name:     "all pages at the default size",
			opts:     nil,
			wantIDs:  []int64{1, 2, 3, 4, 5},
			requests: 1,
		},
		{
			name:     "all pages of two",
			opts:     &ghe.ListOptions{PageRequest: ghe.PageRequest{PageSize: 2}},
			wantIDs:  []int64{1, 2, 3, 4, 5},
			requests: 3,
		},
		{
			name:     "first page only",
			opts:     &ghe.ListOptions{PageRequest: ghe.PageRequest{PageSize: 1, PageCount: 1}},
			wantIDs:  []int64{1},
			requests: 1,
		},
		{
			name:     "second page only",
			opts:     &ghe.ListOptions{PageRequest: ghe.PageRequest{PageSize: 1, PageCount: 1, StartPage: 2}},
			wantIDs:  []int64{2},
			requests: 1,
		},
		{
			name:     "two pages from the fourth",
			opts:     &ghe.ListOptions{PageRequest: ghe.PageRequest{PageSize: 1, PageCount: 2, StartPage: 4}},
			wantIDs:  []int64{4, 5},
			requests: 2,
		},
		{
			name:     "start page beyond the end",
			opts:     &ghe.ListOptions{PageRequest: ghe.PageRequest{PageSize: 2, StartPage: 10}},
			wantIDs:  []int64{},
			requests: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, rec := newTestClient(t, handler)

			got, err := c.PreReceiveHooks().List(context.Background(), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, hookIDs(got))
			assert.Equal(t, tt.requests, rec.count())
		})
	}
}

func TestPreReceiveHooksClient_List_Request(t *testing.T) {
	t.Parallel()

	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []ghe.PreReceiveHook{})
	})

	_, err := c.PreReceiveHooks().List(context.Background(), &ghe.ListOptions{
		PageRequest: ghe.PageRequest{PageSize: 50, StartPage: 3},
		Sort:        "name",
		Direction:   "asc",
	})
	require.NoError(t, err)
	require.Equal(t, 1, rec.count())

	req := rec.at(0)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/admin/pre-receive-hooks", req.URL.Path)
	assert.Equal(t, "50", req.URL.Query().Get("per_page"))
	assert.Equal(t, "3", req.URL.Query().Get("page"))
	assert.Equal(t, "name", req.URL.Query().Get("sort"))
	assert.Equal(t, "asc", req.URL.Query().Get("direction"))
	assert.Equal(t, constants.MediaTypePreReceivePreview, req.Header.Get("Accept"))
	assert.Equal(t, "token test-token", req.Header.Get("Authorization"))
}

func TestPreReceiveHooksClient_List_InvalidPageRequest(t *testing.T) {
	t.Parallel()

	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []ghe.PreReceiveHook{})
	})

	_, err := c.PreReceiveHooks().List(context.Background(), &ghe.ListOptions{
		PageRequest: ghe.PageRequest{PageSize: -1},
	})
	require.Error(t, err)
	assert.True(t, ghe.IsArgumentInvalid(err))
	assert.Zero(t, rec.count())
}

func TestPreReceiveHooksClient_List_PageFailure(t *testing.T) {
	t.Parallel()

	hooks := numberedHooks(4)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "boom"})

			return
		}

		servePaged(w, r, hooks)
	})

	got, err := c.PreReceiveHooks().List(context.Background(), &ghe.ListOptions{
		PageRequest: ghe.PageRequest{PageSize: 2},
	})
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, ghe.IsServerError(err))
}

func TestPreReceiveHooksClient_Iterate(t *testing.T) {
	t.Parallel()

	hooks := numberedHooks(3)
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		servePaged(w, r, hooks)
	})

	it := c.PreReceiveHooks().Iterate(context.Background(), &ghe.ListOptions{
		PageRequest: ghe.PageRequest{PageSize: 1},
	})

	require.True(t, it.HasNext())
	first, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, 1, rec.count())

	rest, err := it.All()
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, hookIDs(rest))
	assert.Equal(t, 3, rec.count())
}

func TestPreReceiveHooksClient_Get(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/admin/pre-receive-hooks/1":
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"id":          1,
				"name":        "Check Commits",
				"enforcement": "disabled",
				"script":      "scripts/commits.sh",
				"script_repository": map[string]interface{}{
					"id":        595,
					"full_name": "DevIT/hooks",
				},
				"environment": map[string]interface{}{
					"id":   2,
					"name": "DevTools Hook Env",
				},
				"allow_downstream_configuration": true,
			})
		default:
			writeNotFound(w)
		}
	})

	t.Run("found", func(t *testing.T) {
		t.Parallel()

		hook, err := c.PreReceiveHooks().Get(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, "Check Commits", hook.Name)
		assert.Equal(t, ghe.EnforcementDisabled, hook.Enforcement)
		require.NotNil(t, hook.ScriptRepository)
		assert.Equal(t, "DevIT/hooks", hook.ScriptRepository.FullName)
		require.NotNil(t, hook.Environment)
		assert.Equal(t, int64(2), hook.Environment.ID)
		assert.True(t, hook.AllowDownstreamConfiguration)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		t.Parallel()

		_, err := c.PreReceiveHooks().Get(context.Background(), -1)
		require.Error(t, err)
		assert.True(t, ghe.IsNotFound(err))
		require.ErrorIs(t, err, ghe.ErrNotFound)
	})
}

func TestPreReceiveHooksClient_Create(t *testing.T) {
	t.Parallel()

	t.Run("sends payload", func(t *testing.T) {
		t.Parallel()

		var payload map[string]interface{}

		c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			writeJSON(w, http.StatusCreated, ghe.PreReceiveHook{
				ID:          42,
				Name:        "new-hook",
				Enforcement: ghe.EnforcementTesting,
				Script:      "hooks/check.sh",
			})
		})

		request := ghe.NewPreReceiveHookRequest("new-hook", "org/hooks", "hooks/check.sh", 1)
		request.Enforcement = ghe.EnforcementTesting

		hook, err := c.PreReceiveHooks().Create(context.Background(), request)
		require.NoError(t, err)
		assert.Equal(t, int64(42), hook.ID)

		req := rec.at(0)
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "/admin/pre-receive-hooks", req.URL.Path)
		assert.Equal(t, "new-hook", payload["name"])
		assert.Equal(t, "testing", payload["enforcement"])
		assert.Equal(t, map[string]interface{}{"full_name": "org/hooks"}, payload["script_repository"])
		assert.Equal(t, map[string]interface{}{"id": float64(1)}, payload["environment"])
	})

	t.Run("duplicate name fails validation", func(t *testing.T) {
		t.Parallel()

		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"message": "Validation Failed",
				"errors": []map[string]string{{
					"resource": "PreReceiveHook",
					"code":     "custom",
					"field":    "name",
					"message":  "Name has already been taken",
				}},
			})
		})

		_, err := c.PreReceiveHooks().Create(context.Background(),
			ghe.NewPreReceiveHookRequest("dup", "org/hooks", "hooks/check.sh", 1))
		require.Error(t, err)
		assert.True(t, ghe.IsValidationFailed(err))
		assert.Contains(t, err.Error(), "Name has already been taken")
	})

	t.Run("invalid arguments never reach the server", func(t *testing.T) {
		t.Parallel()

		c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusCreated, ghe.PreReceiveHook{})
		})

		invalid := []*ghe.NewPreReceiveHook{
			nil,
			ghe.NewPreReceiveHookRequest("", "org/hooks", "hooks/check.sh", 1),
			ghe.NewPreReceiveHookRequest("hook", "no-slash", "hooks/check.sh", 1),
			ghe.NewPreReceiveHookRequest("hook", "org/hooks", "", 1),
			ghe.NewPreReceiveHookRequest("hook", "org/hooks", "hooks/check.sh", 0),
			{
				Name:             "hook",
				Script:           "hooks/check.sh",
				ScriptRepository: &ghe.RepositoryReference{FullName: "org/hooks"},
				Environment:      &ghe.EnvironmentReference{ID: 1},
				Enforcement:      "sometimes",
			},
		}

		for _, hook := range invalid {
			_, err := c.PreReceiveHooks().Create(context.Background(), hook)
			require.Error(t, err)
			assert.True(t, ghe.IsArgumentInvalid(err), "got %v", err)
		}

		assert.Zero(t, rec.count())
	})
}

func TestPreReceiveHooksClient_Edit(t *testing.T) {
	t.Parallel()

	var payload map[string]interface{}

	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		writeJSON(w, http.StatusOK, ghe.PreReceiveHook{ID: 3, Name: "hook-3", Enforcement: ghe.EnforcementEnabled})
	})

	enforcement := ghe.EnforcementEnabled

	hook, err := c.PreReceiveHooks().Edit(context.Background(), 3, &ghe.UpdatePreReceiveHook{Enforcement: &enforcement})
	require.NoError(t, err)
	assert.Equal(t, ghe.EnforcementEnabled, hook.Enforcement)

	req := rec.at(0)
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Equal(t, "/admin/pre-receive-hooks/3", req.URL.Path)
	assert.Equal(t, map[string]interface{}{"enforcement": "enabled"}, payload)

	_, err = c.PreReceiveHooks().Edit(context.Background(), 3, nil)
	require.Error(t, err)
	assert.True(t, ghe.IsArgumentInvalid(err))
	assert.Equal(t, 1, rec.count())
}

func TestPreReceiveHooksClient_Delete(t *testing.T) {
	t.Parallel()

	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/admin/pre-receive-hooks/9" {
			w.WriteHeader(http.StatusNoContent)

			return
		}

		writeNotFound(w)
	})

	require.NoError(t, c.PreReceiveHooks().Delete(context.Background(), 9))
	assert.Equal(t, http.MethodDelete, rec.at(0).Method)

	err := c.PreReceiveHooks().Delete(context.Background(), 10)
	require.Error(t, err)
	assert.True(t, ghe.IsNotFound(err))
}

func TestPreReceiveHooksClient_Cancelled(t *testing.T) {
	t.Parallel()

	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		servePaged(w, r, numberedHooks(2))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.PreReceiveHooks().List(ctx, nil)
	require.Error(t, err)
	assert.True(t, ghe.IsTransportFailure(err))

	_, err = c.PreReceiveHooks().Get(ctx, 1)
	require.Error(t, err)
	assert.True(t, ghe.IsTransportFailure(err))
	assert.Zero(t, rec.count())
}
