// Package gheclient provides the primary entry point for constructing a
// GitHub Enterprise REST API client that implements the ghe.Client interface.
//
// It normalizes the base URL and layers transport, authentication and the
// optional response cache on top of the resource interfaces and types defined
// in the ghe package.
//
// Quick start
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
//
//	  // "ghe.example.com" becomes "https://ghe.example.com/api/v3".
//	  cli, err := gheclient.NewWithToken(ctx, "ghe.example.com", "ghp_...")
//	  if err != nil { log.Fatal(err) }
//
//	  // The first two hooks, one per page.
//	  hooks, err := cli.PreReceiveHooks().List(ctx, &ghe.ListOptions{
//	    PageRequest: ghe.PageRequest{PageSize: 1, PageCount: 2},
//	  })
//	  if err != nil { log.Fatal(err) }
//	  _ = hooks
//	}
//
// # Errors
//
// Every failure is a *ghe.Error of exactly one kind. Use ghe.IsNotFound and
// friends, or errors.Is with the ghe.Err* sentinels, to branch on it.
package gheclient
