package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/yndnr/notekeep-go/internal/storage"
)

// KV is a mutex-guarded map implementing storage.KV.
type KV struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool

	// failNext makes the next write fail, for exercising error paths.
	failNext error
}

// New creates an empty in-memory KV.
func New() *KV {
	return &KV{data: make(map[string][]byte)}
}

// Get returns a copy of the stored value.
func (m *KV) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, storage.ErrClosed
	}
	v, ok := m.data[key]
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value.
func (m *KV) Set(ctx context.Context, key string, value []byte) error {
	return m.Apply(ctx, []storage.Op{storage.SetOp(key, value)})
}

// Delete removes key.
func (m *KV) Delete(ctx context.Context, key string) error {
	return m.Apply(ctx, []storage.Op{storage.DeleteOp(key)})
}

// Apply executes the batch under a single write lock.
func (m *KV) Apply(ctx context.Context, ops []storage.Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return storage.ErrClosed
	}
	if err := m.failNext; err != nil {
		m.failNext = nil
		return err
	}

	for _, op := range ops {
		if op.Kind != storage.OpSet && op.Kind != storage.OpDelete {
			return fmt.Errorf("memory: unknown op kind %d", op.Kind)
		}
	}
	for _, op := range ops {
		switch op.Kind {
		case storage.OpSet:
			m.data[op.Key] = append([]byte(nil), op.Value...)
		case storage.OpDelete:
			delete(m.data, op.Key)
		}
	}
	return nil
}

// FailNextWrite makes the next Set/Delete/Apply return err without writing.
func (m *KV) FailNextWrite(err error) {
	m.mu.Lock()
	m.failNext = err
	m.mu.Unlock()
}

// Len returns the number of stored keys.
func (m *KV) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Close marks the store closed.
func (m *KV) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

var _ storage.KV = (*KV)(nil)
