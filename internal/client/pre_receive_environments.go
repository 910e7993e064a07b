package client

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fivetwenty-io/ghe-client/internal/constants"
	"github.com/fivetwenty-io/ghe-client/internal/http"
	"github.com/fivetwenty-io/ghe-client/pkg/ghe"
)

const preReceiveEnvironmentsPath = "/admin/pre-receive-environments"

// PreReceiveEnvironmentsClient implements ghe.PreReceiveEnvironmentsClient.
type PreReceiveEnvironmentsClient struct {
	httpClient  *http.Client
	encoder     *ghe.ParameterEncoder
	validator   *ghe.Validator
	pollTimeout time.Duration
}

// NewPreReceiveEnvironmentsClient creates a new pre-receive environments client.
func NewPreReceiveEnvironmentsClient(httpClient *http.Client, encoder *ghe.ParameterEncoder, validator *ghe.Validator) *PreReceiveEnvironmentsClient {
	return &PreReceiveEnvironmentsClient{
		httpClient:  httpClient,
		encoder:     encoder,
		validator:   validator,
		pollTimeout: constants.DefaultDownloadPollTimeout,
	}
}

func (c *PreReceiveEnvironmentsClient) fetcher(opts *ghe.ListOptions) ghe.PageFunc[ghe.PreReceiveEnvironment] {
	query := pageQuery(c.encoder, opts.Pages(), opts)

	return pageFetcher[ghe.PreReceiveEnvironment](c.httpClient, preReceiveEnvironmentsPath, query, preview)
}

// List implements ghe.PreReceiveEnvironmentsClient.List.
func (c *PreReceiveEnvironmentsClient) List(ctx context.Context, opts *ghe.ListOptions) ([]ghe.PreReceiveEnvironment, error) {
	environments, err := ghe.FetchAll(ctx, c.fetcher(opts), opts.Pages())
	if err != nil {
		return nil, fmt.Errorf("listing pre-receive environments: %w", err)
	}

	return environments, nil
}

// Iterate implements ghe.PreReceiveEnvironmentsClient.Iterate.
func (c *PreReceiveEnvironmentsClient) Iterate(ctx context.Context, opts *ghe.ListOptions) *ghe.PageIterator[ghe.PreReceiveEnvironment] {
	return ghe.NewPageIterator(ctx, c.fetcher(opts), opts.Pages())
}

// Get implements ghe.PreReceiveEnvironmentsClient.Get.
func (c *PreReceiveEnvironmentsClient) Get(ctx context.Context, id int64) (*ghe.PreReceiveEnvironment, error) {
	environment, err := getJSON[ghe.PreReceiveEnvironment](ctx, c.httpClient, environmentPath(id), preview)
	if err != nil {
		return nil, fmt.Errorf("getting pre-receive environment: %w", err)
	}

	return environment, nil
}

// Create implements ghe.PreReceiveEnvironmentsClient.Create.
func (c *PreReceiveEnvironmentsClient) Create(ctx context.Context, environment *ghe.NewPreReceiveEnvironment) (*ghe.PreReceiveEnvironment, error) {
	err := c.validator.Argument("environment", environment)
	if err != nil {
		return nil, err
	}

	created, err := sendJSON[ghe.PreReceiveEnvironment](ctx, c.httpClient, "POST", preReceiveEnvironmentsPath, environment, preview)
	if err != nil {
		return nil, fmt.Errorf("creating pre-receive environment: %w", err)
	}

	return created, nil
}

// Edit implements ghe.PreReceiveEnvironmentsClient.Edit.
func (c *PreReceiveEnvironmentsClient) Edit(ctx context.Context, id int64, update *ghe.UpdatePreReceiveEnvironment) (*ghe.PreReceiveEnvironment, error) {
	err := c.validator.Argument("update", update)
	if err != nil {
		return nil, err
	}

	environment, err := sendJSON[ghe.PreReceiveEnvironment](ctx, c.httpClient, "PATCH", environmentPath(id), update, preview)
	if err != nil {
		return nil, fmt.Errorf("updating pre-receive environment: %w", err)
	}

	return environment, nil
}

// Delete implements ghe.PreReceiveEnvironmentsClient.Delete.
func (c *PreReceiveEnvironmentsClient) Delete(ctx context.Context, id int64) error {
	_, err := c.httpClient.Delete(ctx, environmentPath(id), preview)
	if err != nil {
		return fmt.Errorf("deleting pre-receive environment: %w", err)
	}

	return nil
}

// DownloadStatus implements ghe.PreReceiveEnvironmentsClient.DownloadStatus.
func (c *PreReceiveEnvironmentsClient) DownloadStatus(ctx context.Context, id int64) (*ghe.PreReceiveEnvironmentDownload, error) {
	download, err := getJSON[ghe.PreReceiveEnvironmentDownload](ctx, c.httpClient, environmentPath(id)+"/downloads/latest", preview)
	if err != nil {
		return nil, fmt.Errorf("getting environment download status: %w", err)
	}

	return download, nil
}

// TriggerDownload implements ghe.PreReceiveEnvironmentsClient.TriggerDownload.
func (c *PreReceiveEnvironmentsClient) TriggerDownload(ctx context.Context, id int64) (*ghe.PreReceiveEnvironmentDownload, error) {
	download, err := sendJSON[ghe.PreReceiveEnvironmentDownload](ctx, c.httpClient, "POST", environmentPath(id)+"/downloads", nil, preview)
	if err != nil {
		return nil, fmt.Errorf("triggering environment download: %w", err)
	}

	return download, nil
}

// WaitForDownload implements ghe.PreReceiveEnvironmentsClient.WaitForDownload.
// It polls the latest download until it succeeds or fails. A non-positive
// interval uses the default poll interval.
func (c *PreReceiveEnvironmentsClient) WaitForDownload(ctx context.Context, id int64, interval time.Duration) (*ghe.PreReceiveEnvironmentDownload, error) {
	if interval <= 0 {
		interval = constants.DefaultPollInterval
	}

	pollCtx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		download, err := c.DownloadStatus(pollCtx, id)
		if err != nil {
			return nil, err
		}

		if download.Terminal() {
			if download.State == constants.DownloadStateFailed {
				return download, fmt.Errorf("%w: %s", constants.ErrDownloadFailed, download.Message)
			}

			return download, nil
		}

		select {
		case <-pollCtx.Done():
			return download, fmt.Errorf("waiting for environment download: %w", ghe.NewTransportError(pollCtx.Err()))
		case <-ticker.C:
		}
	}
}

func environmentPath(id int64) string {
	return preReceiveEnvironmentsPath + "/" + strconv.FormatInt(id, 10)
}
