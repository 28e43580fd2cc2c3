// Package store persists the pipeline's three collections through a
// key-value collaborator holding one JSON document per logical name.
package store

import (
	"context"
	"sync"
)

// Logical keys of the persisted collections.
const (
	KeyWatchlist = "watchlist"
	KeySignals   = "signaux"
	KeyConfig    = "signal_config"
)

// KV is the persistence collaborator: JSON documents by fixed logical name.
// Get returns (nil, nil) for an absent key; callers treat absence as an
// empty collection, never as an error.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// MemoryKV is an in-memory KV for tests and dry runs.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

func (m *MemoryKV) Close() error { return nil }
