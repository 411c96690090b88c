// Package storage provides persistence backends for the notekeep session.
//
// The session store persists exactly two values, the bearer credential
// (key "token") and the cached identity (key "user"). Backends implement
// the small KV interface defined in kv.go:
//
//   - badger.go: embedded Badger v3 database (default, survives restarts)
//   - memory/: in-process map (tests, --ephemeral)
//   - redis/: shared Redis instance (one session across several machines)
//
// Every backend applies a batch of operations atomically so that a login
// or logout is never observed half-written after a restart.
package storage
