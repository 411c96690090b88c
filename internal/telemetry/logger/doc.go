// Package logger provides structured logging for notekeep.
//
// It wraps log/slog:
//
//   - logger.go: configuration, levels and the package-level default
//   - context.go: request ID propagation through context.Context
//   - redact.go: masking of credentials, bearer headers and passwords
//
// The CLI logs to stderr at warn by default so command output on stdout
// stays machine readable.
package logger
