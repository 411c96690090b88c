// Package memory provides an in-process KV backend for the notekeep session.
//
// Nothing survives the process; it backs tests and the --ephemeral flag.
package memory
