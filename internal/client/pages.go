package client

import (
	"context"
	"net/url"

	"github.com/fivetwenty-io/ghe-client/internal/http"
	"github.com/fivetwenty-io/ghe-client/pkg/ghe"
)

// pageFetcher returns a PageFunc for a listing endpoint. The first page is
// requested at path with query; later pages follow the Link header verbatim,
// since it already carries the page size and filters.
func pageFetcher[T any](httpClient *http.Client, path string, query url.Values, opts ...http.RequestOption) ghe.PageFunc[T] {
	return func(ctx context.Context, link string) (*ghe.Page[T], error) {
		target, params := path, query
		if link != "" {
			target, params = link, nil
		}

		resp, err := httpClient.Get(ctx, target, params, opts...)
		if err != nil {
			return nil, err
		}

		items, err := http.DecodeJSON[[]T](httpClient.Codec(), resp)
		if err != nil {
			return nil, err
		}

		return &ghe.Page[T]{Items: *items, NextPageLink: resp.NextPageLink()}, nil
	}
}

// listAll fetches every page selected by pages.
func listAll[T any](ctx context.Context, httpClient *http.Client, path string, query url.Values, pages *ghe.PageRequest, opts ...http.RequestOption) ([]T, error) {
	return ghe.FetchAll(ctx, pageFetcher[T](httpClient, path, query, opts...), pages)
}

// pageQuery merges the first-page selection with the encoded options.
func pageQuery(encoder *ghe.ParameterEncoder, pages *ghe.PageRequest, opts any) url.Values {
	query := pages.Values()
	if encoder == nil {
		return query
	}

	return encoder.Merge(query, opts)
}

// getJSON fetches path and decodes the body into a new T.
func getJSON[T any](ctx context.Context, httpClient *http.Client, path string, opts ...http.RequestOption) (*T, error) {
	resp, err := httpClient.Get(ctx, path, nil, opts...)
	if err != nil {
		return nil, err
	}

	return http.DecodeJSON[T](httpClient.Codec(), resp)
}

// sendJSON performs a write and decodes the body into a new T.
func sendJSON[T any](ctx context.Context, httpClient *http.Client, method, path string, body interface{}, opts ...http.RequestOption) (*T, error) {
	req := &http.Request{Method: method, Path: path, Body: body}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := httpClient.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	return http.DecodeJSON[T](httpClient.Codec(), resp)
}
