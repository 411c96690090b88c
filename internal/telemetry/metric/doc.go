// Package metric provides Prometheus metrics for notekeep.
//
// Each gateway owns a private Registry so tests and embedded clients never
// collide on the default registerer. Metrics include:
//
//   - outbound request counts and latency by method
//   - refresh outcomes and the number of callers parked behind a refresh
//   - retry outcomes after a 401
//   - badger storage sizes (registered by the storage layer)
//
// The CLI's metrics command writes the registry in text exposition format.
package metric
