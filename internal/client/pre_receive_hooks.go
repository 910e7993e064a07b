package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fivetwenty-io/ghe-client/internal/constants"
	"github.com/fivetwenty-io/ghe-client/internal/http"
	"github.com/fivetwenty-io/ghe-client/pkg/ghe"
)

const preReceiveHooksPath = "/admin/pre-receive-hooks"

// PreReceiveHooksClient implements ghe.PreReceiveHooksClient.
type PreReceiveHooksClient struct {
	httpClient *http.Client
	encoder    *ghe.ParameterEncoder
	validator  *ghe.Validator
}

// NewPreReceiveHooksClient creates a new pre-receive hooks client.
func NewPreReceiveHooksClient(httpClient *http.Client, encoder *ghe.ParameterEncoder, validator *ghe.Validator) *PreReceiveHooksClient {
	return &PreReceiveHooksClient{
		httpClient: httpClient,
		encoder:    encoder,
		validator:  validator,
	}
}

func (c *PreReceiveHooksClient) fetcher(opts *ghe.ListOptions) ghe.PageFunc[ghe.PreReceiveHook] {
	query := pageQuery(c.encoder, opts.Pages(), opts)

	return pageFetcher[ghe.PreReceiveHook](c.httpClient, preReceiveHooksPath, query, preview)
}

// List implements ghe.PreReceiveHooksClient.List.
func (c *PreReceiveHooksClient) List(ctx context.Context, opts *ghe.ListOptions) ([]ghe.PreReceiveHook, error) {
	hooks, err := ghe.FetchAll(ctx, c.fetcher(opts), opts.Pages())
	if err != nil {
		return nil, fmt.Errorf("listing pre-receive hooks: %w", err)
	}

	return hooks, nil
}

// Iterate implements ghe.PreReceiveHooksClient.Iterate.
func (c *PreReceiveHooksClient) Iterate(ctx context.Context, opts *ghe.ListOptions) *ghe.PageIterator[ghe.PreReceiveHook] {
	return ghe.NewPageIterator(ctx, c.fetcher(opts), opts.Pages())
}

// Get implements ghe.PreReceiveHooksClient.Get.
func (c *PreReceiveHooksClient) Get(ctx context.Context, id int64) (*ghe.PreReceiveHook, error) {
	hook, err := getJSON[ghe.PreReceiveHook](ctx, c.httpClient, hookPath(id), preview)
	if err != nil {
		return nil, fmt.Errorf("getting pre-receive hook: %w", err)
	}

	return hook, nil
}

// Create implements ghe.PreReceiveHooksClient.Create.
func (c *PreReceiveHooksClient) Create(ctx context.Context, hook *ghe.NewPreReceiveHook) (*ghe.PreReceiveHook, error) {
	err := c.validator.Argument("hook", hook)
	if err != nil {
		return nil, err
	}

	created, err := sendJSON[ghe.PreReceiveHook](ctx, c.httpClient, "POST", preReceiveHooksPath, hook, preview)
	if err != nil {
		return nil, fmt.Errorf("creating pre-receive hook: %w", err)
	}

	return created, nil
}

// Edit implements ghe.PreReceiveHooksClient.Edit.
func (c *PreReceiveHooksClient) Edit(ctx context.Context, id int64, update *ghe.UpdatePreReceiveHook) (*ghe.PreReceiveHook, error) {
	err := c.validator.Argument("update", update)
	if err != nil {
		return nil, err
	}

	hook, err := sendJSON[ghe.PreReceiveHook](ctx, c.httpClient, "PATCH", hookPath(id), update, preview)
	if err != nil {
		return nil, fmt.Errorf("updating pre-receive hook: %w", err)
	}

	return hook, nil
}

// Delete implements ghe.PreReceiveHooksClient.Delete.
func (c *PreReceiveHooksClient) Delete(ctx context.Context, id int64) error {
	_, err := c.httpClient.Delete(ctx, hookPath(id), preview)
	if err != nil {
		return fmt.Errorf("deleting pre-receive hook: %w", err)
	}

	return nil
}

func hookPath(id int64) string {
	return preReceiveHooksPath + "/" + strconv.FormatInt(id, 10)
}

// preview selects the media type the pre-receive endpoints require.
var preview = http.WithAccept(constants.MediaTypePreReceivePreview)
