package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/fivetwenty-io/ghe-client/internal/http"
	"github.com/fivetwenty-io/ghe-client/pkg/ghe"
)

// ReleasesClient implements ghe.ReleasesClient.
type ReleasesClient struct {
	httpClient *http.Client
	validator  *ghe.Validator
}

// NewReleasesClient creates a new releases client.
func NewReleasesClient(httpClient *http.Client, validator *ghe.Validator) *ReleasesClient {
	return &ReleasesClient{
		httpClient: httpClient,
		validator:  validator,
	}
}

// pathSegment escapes value so that it stays one path segment.
func pathSegment(name, value string) (string, error) {
	switch value {
	case "":
		return "", ghe.NewArgumentError(name, "is required")
	case ".", "..":
		return "", ghe.NewArgumentError(name, "must not be a dot segment")
	}

	return url.PathEscape(value), nil
}

// releasesPath returns the releases collection of owner/repo.
func releasesPath(owner, repo string) (string, error) {
	ownerSegment, err := pathSegment("owner", owner)
	if err != nil {
		return "", err
	}

	repoSegment, err := pathSegment("repo", repo)
	if err != nil {
		return "", err
	}

	return "/repos/" + ownerSegment + "/" + repoSegment + "/releases", nil
}

func releasePath(owner, repo string, id int64) (string, error) {
	base, err := releasesPath(owner, repo)
	if err != nil {
		return "", err
	}

	return base + "/" + strconv.FormatInt(id, 10), nil
}

// List implements ghe.ReleasesClient.List.
func (c *ReleasesClient) List(ctx context.Context, owner, repo string, pages *ghe.PageRequest) ([]ghe.Release, error) {
	path, err := releasesPath(owner, repo)
	if err != nil {
		return nil, err
	}

	releases, err := listAll[ghe.Release](ctx, c.httpClient, path, pages.Values(), pages)
	if err != nil {
		return nil, fmt.Errorf("listing releases: %w", err)
	}

	return releases, nil
}

// Stream implements ghe.ReleasesClient.Stream. Argument errors are delivered
// as the only result on the channel.
func (c *ReleasesClient) Stream(ctx context.Context, owner, repo string, pages *ghe.PageRequest) <-chan ghe.PageResult[ghe.Release] {
	path, err := releasesPath(owner, repo)
	if err != nil {
		results := make(chan ghe.PageResult[ghe.Release], 1)
		results <- ghe.PageResult[ghe.Release]{Err: err}
		close(results)

		return results
	}

	return ghe.StreamPages(ctx, pageFetcher[ghe.Release](c.httpClient, path, pages.Values()), pages)
}

// Get implements ghe.ReleasesClient.Get.
func (c *ReleasesClient) Get(ctx context.Context, owner, repo string, id int64) (*ghe.Release, error) {
	path, err := releasePath(owner, repo, id)
	if err != nil {
		return nil, err
	}

	release, err := getJSON[ghe.Release](ctx, c.httpClient, path)
	if err != nil {
		return nil, fmt.Errorf("getting release: %w", err)
	}

	return release, nil
}

// GetLatest implements ghe.ReleasesClient.GetLatest.
func (c *ReleasesClient) GetLatest(ctx context.Context, owner, repo string) (*ghe.Release, error) {
	path, err := releasesPath(owner, repo)
	if err != nil {
		return nil, err
	}

	release, err := getJSON[ghe.Release](ctx, c.httpClient, path+"/latest")
	if err != nil {
		return nil, fmt.Errorf("getting latest release: %w", err)
	}

	return release, nil
}

// GetByTag implements ghe.ReleasesClient.GetByTag.
func (c *ReleasesClient) GetByTag(ctx context.Context, owner, repo, tag string) (*ghe.Release, error) {
	path, err := releasesPath(owner, repo)
	if err != nil {
		return nil, err
	}

	tagSegment, err := pathSegment("tag", tag)
	if err != nil {
		return nil, err
	}

	release, err := getJSON[ghe.Release](ctx, c.httpClient, path+"/tags/"+tagSegment)
	if err != nil {
		return nil, fmt.Errorf("getting release by tag: %w", err)
	}

	return release, nil
}

// Create implements ghe.ReleasesClient.Create.
func (c *ReleasesClient) Create(ctx context.Context, owner, repo string, release *ghe.NewRelease) (*ghe.Release, error) {
	path, err := releasesPath(owner, repo)
	if err != nil {
		return nil, err
	}

	err = c.validator.Argument("release", release)
	if err != nil {
		return nil, err
	}

	created, err := sendJSON[ghe.Release](ctx, c.httpClient, "POST", path, release)
	if err != nil {
		return nil, fmt.Errorf("creating release: %w", err)
	}

	return created, nil
}

// Edit implements ghe.ReleasesClient.Edit.
func (c *ReleasesClient) Edit(ctx context.Context, owner, repo string, id int64, update *ghe.UpdateRelease) (*ghe.Release, error) {
	path, err := releasePath(owner, repo, id)
	if err != nil {
		return nil, err
	}

	err = c.validator.Argument("update", update)
	if err != nil {
		return nil, err
	}

	release, err := sendJSON[ghe.Release](ctx, c.httpClient, "PATCH", path, update)
	if err != nil {
		return nil, fmt.Errorf("updating release: %w", err)
	}

	return release, nil
}

// Delete implements ghe.ReleasesClient.Delete.
func (c *ReleasesClient) Delete(ctx context.Context, owner, repo string, id int64) error {
	path, err := releasePath(owner, repo, id)
	if err != nil {
		return err
	}

	_, err = c.httpClient.Delete(ctx, path)
	if err != nil {
		return fmt.Errorf("deleting release: %w", err)
	}

	return nil
}

// ListAssets implements ghe.ReleasesClient.ListAssets.
func (c *ReleasesClient) ListAssets(ctx context.Context, owner, repo string, id int64, pages *ghe.PageRequest) ([]ghe.ReleaseAsset, error) {
	path, err := releasePath(owner, repo, id)
	if err != nil {
		return nil, err
	}

	assets, err := listAll[ghe.ReleaseAsset](ctx, c.httpClient, path+"/assets", pages.Values(), pages)
	if err != nil {
		return nil, fmt.Errorf("listing release assets: %w", err)
	}

	return assets, nil
}
