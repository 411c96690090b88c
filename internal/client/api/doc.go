// Package api is the typed notes API client.
//
// Every call goes through the gateway, so credentials are attached and
// refreshed transparently. Calls that need a logged-in user fail with
// domain.ErrNotAuthenticated before any network I/O, and inputs are
// validated locally first. Query results are cached by tag when a cache is
// configured; mutations invalidate the tags they affect.
package api
