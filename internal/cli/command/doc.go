// Package command defines the notekeep CLI using urfave/cli/v2.
//
// The app's Before hook loads configuration and prepares a lazily opened
// client stack; commands that talk to the API call EnsureConnected. The
// repl command re-enters the same app for every line, so the session,
// cache and gateway metrics persist for the whole interactive session.
package command
