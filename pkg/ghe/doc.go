// Package ghe provides types, interfaces, and helpers for working with the
// GitHub Enterprise Server REST API.
//
// # Overview
//
// The ghe package defines the domain types (PreReceiveHook,
// PreReceiveEnvironment, Release) and the interfaces for resource-oriented
// clients (PreReceiveHooksClient, ReleasesClient). A concrete implementation is
// provided by the gheclient package, which wires configuration, transport and
// authentication.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/ghe-client/pkg/ghe"
//	  "github.com/fivetwenty-io/ghe-client/pkg/gheclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//	  cli, err := gheclient.New(ctx, &ghe.Config{BaseURL: "ghe.example.com", Token: "ghp_..."})
//	  if err != nil { log.Fatal(err) }
//
//	  releases, err := cli.Releases().List(ctx, "octo", "widgets", &ghe.PageRequest{PageSize: 50, PageCount: 1})
//	  if err != nil { log.Fatal(err) }
//	  _ = releases
//	}
//
// # Pagination
//
// Listings follow the rel="next" URL of the Link header, one page at a time.
// A PageRequest picks the page size, the first page and how many pages to
// fetch; a nil PageRequest fetches everything. FetchAll collects the items,
// PageIterator yields them on demand and StreamPages delivers whole pages on a
// channel. All three stop at the last page, at a repeated link or at the page
// count, whichever comes first.
//
// # Errors
//
// Every failure is an *Error of exactly one ErrorKind:
//
//	hook, err := cli.PreReceiveHooks().Get(ctx, 42)
//	switch {
//	case ghe.IsNotFound(err):
//	  // no such hook
//	case errors.Is(err, ghe.ErrRateLimited):
//	  var apiErr *ghe.Error
//	  errors.As(err, &apiErr)
//	  log.Printf("retry after %s", apiErr.ResetAt)
//	}
//
// Argument errors (KindArgumentInvalid) are raised before any request is sent.
//
// # Caching
//
// CacheConfig enables conditional requests: GET responses with an ETag are
// stored in memory or in a NATS JetStream key-value bucket, and later requests
// are revalidated with If-None-Match.
package ghe
