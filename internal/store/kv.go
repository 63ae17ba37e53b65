package store

import (
	"context"
	"errors"
	"sync"
)

// Durable KV errors. ErrCapacityExceeded triggers the store's emergency
// eviction path; every other storage fault is logged and swallowed because
// caching is advisory, never load-bearing.
var (
	ErrKeyNotFound      = errors.New("kv: key not found")
	ErrCapacityExceeded = errors.New("kv: capacity exceeded")
)

// DurableKV abstracts the persistence medium for the record store. Any
// key-value backend (file, embedded DB, remote cache) satisfies it.
type DurableKV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// MemoryKV is an in-process DurableKV, used in tests and as the fallback
// backend when no durable medium is configured. A put-error hook lets tests
// simulate capacity exhaustion.
type MemoryKV struct {
	mu     sync.RWMutex
	data   map[string][]byte
	putErr error
	// putErrBudget limits how many puts fail before the hook clears itself;
	// negative means fail forever.
	putErrBudget int
}

// NewMemoryKV creates an empty in-memory KV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

// FailPuts makes the next n Put calls return err (n < 0 means all of them).
func (m *MemoryKV) FailPuts(err error, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putErr = err
	m.putErrBudget = n
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (m *MemoryKV) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.putErr != nil && m.putErrBudget != 0 {
		if m.putErrBudget > 0 {
			m.putErrBudget--
		}
		return m.putErr
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[key] = stored
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryKV) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func (m *MemoryKV) Close() error { return nil }
