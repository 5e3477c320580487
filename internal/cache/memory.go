// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"sync"

	"github.com/pdiddy/bibtools/pkg/types"
)

// MemoryStore is a Store backed by a map. Used for --no-cache runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]types.CacheEntry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]types.CacheEntry)}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, key string) (types.CacheEntry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e, ok, nil
}

// Put implements Store.
func (m *MemoryStore) Put(_ context.Context, e types.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.Key] = e
	return nil
}

// Len returns the number of stored entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
