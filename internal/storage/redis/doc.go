// Package redis provides a Redis-backed KV for the notekeep session.
//
// It lets several machines share one logged-in session: a refresh performed
// by one client is visible to the others on their next start. Batches are
// applied inside MULTI/EXEC.
package redis
