package storage

import (
	"context"
	"errors"
)

// Well-known keys of the persisted session layout.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Common errors
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrClosed      = errors.New("kv engine closed")
)

// OpKind identifies a batch operation.
type OpKind int

const (
	OpSet OpKind = iota
	OpDelete
)

// Op is one operation in an atomic batch.
type Op struct {
	Kind  OpKind
	Key   string
	Value []byte
}

// SetOp returns a set operation.
func SetOp(key string, value []byte) Op {
	return Op{Kind: OpSet, Key: key, Value: value}
}

// DeleteOp returns a delete operation. Deleting a missing key is not an error.
func DeleteOp(key string) Op {
	return Op{Kind: OpDelete, Key: key}
}

// KV is the persistence contract used by the session store.
//
// Implementations must be safe for concurrent use. Apply must be atomic:
// after a crash either every op of the batch is visible or none is.
type KV interface {
	// Get returns the value for key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a single key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes a key. Missing keys are ignored.
	Delete(ctx context.Context, key string) error

	// Apply executes the batch atomically.
	Apply(ctx context.Context, ops []Op) error

	// Close releases the backend.
	Close() error
}

// KVConfig configures a persistence backend.
type KVConfig struct {
	// Engine selects the backend ("badger", "memory", "redis").
	// Default: "badger"
	Engine string

	// Dir is the Badger storage directory.
	Dir string

	// Namespace prefixes every key, so several profiles can share one backend.
	Namespace string

	// Badger-specific configuration
	Badger BadgerConfig
}

// BadgerConfig contains Badger-specific tuning parameters.
// The defaults are sized for a handful of small keys, not a server workload.
type BadgerConfig struct {
	// GCInterval is the interval between automatic value log GC runs.
	// Default: 30m
	GCInterval string

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 16MB
	ValueLogFileSize int64

	// SyncWrites enables fsync after each write.
	// Default: true
	SyncWrites bool
}

// DefaultKVConfig returns the default KV configuration.
func DefaultKVConfig(dir string) KVConfig {
	return KVConfig{
		Engine: "badger",
		Dir:    dir,
		Badger: DefaultBadgerConfig(),
	}
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:       "30m",
		GCThreshold:      0.5,
		ValueLogFileSize: 16 << 20, // 16MB
		SyncWrites:       true,
	}
}

// NamespacedKey joins a namespace and key with ":".
func NamespacedKey(namespace, key string) string {
	if namespace == "" {
		return key
	}
	return namespace + ":" + key
}
