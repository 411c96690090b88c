// Package buildinfo exposes build metadata injected via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/notekeep-go/internal/infra/buildinfo.Version=v1.0.0"
//
// GoVersion and a missing Commit fall back to runtime/debug build info.
package buildinfo
