package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yndnr/notekeep-go/internal/storage"
)

// DefaultPrefix is prepended to every key.
const DefaultPrefix = "notekeep"

// KV implements storage.KV on top of a go-redis client.
type KV struct {
	rdb       goredis.UniversalClient
	prefix    string
	ownClient bool
}

// Option configures a KV.
type Option func(*KV)

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) Option {
	return func(k *KV) {
		k.prefix = prefix
	}
}

// New wraps an existing client. The caller keeps ownership of rdb.
func New(rdb goredis.UniversalClient, opts ...Option) *KV {
	k := &KV{rdb: rdb, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Dial parses a redis:// URL, connects and pings.
// The returned KV owns the client and closes it on Close.
func Dial(ctx context.Context, url string, opts ...Option) (*KV, error) {
	o, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	rdb := goredis.NewClient(o)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	k := New(rdb, opts...)
	k.ownClient = true
	return k, nil
}

func (k *KV) key(key string) string {
	return storage.NamespacedKey(k.prefix, key)
}

// Get returns the value stored at key.
func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := k.rdb.Get(ctx, k.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, storage.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get %s: %w", key, err)
	}
	return v, nil
}

// Set stores value at key without expiry.
func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	return k.Apply(ctx, []storage.Op{storage.SetOp(key, value)})
}

// Delete removes key.
func (k *KV) Delete(ctx context.Context, key string) error {
	return k.Apply(ctx, []storage.Op{storage.DeleteOp(key)})
}

// Apply executes the batch in a MULTI/EXEC transaction.
func (k *KV) Apply(ctx context.Context, ops []storage.Op) error {
	for _, op := range ops {
		if op.Kind != storage.OpSet && op.Kind != storage.OpDelete {
			return fmt.Errorf("redis: unknown op kind %d", op.Kind)
		}
	}

	_, err := k.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, op := range ops {
			switch op.Kind {
			case storage.OpSet:
				pipe.Set(ctx, k.key(op.Key), op.Value, 0)
			case storage.OpDelete:
				pipe.Del(ctx, k.key(op.Key))
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: apply: %w", err)
	}
	return nil
}

// Close closes the client when the KV owns it.
func (k *KV) Close() error {
	if !k.ownClient {
		return nil
	}
	return k.rdb.Close()
}

var _ storage.KV = (*KV)(nil)
