// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache stores provider answers keyed by provider and normalized
// query. A Cache fronts a durable Store with an in-memory LRU. Store
// failures never surface to callers: a failed read is a miss and a failed
// write is dropped. Entries are never expired here; external tooling
// invalidates them (see SQLiteStore.Purge).
package cache

import (
	"context"
	"fmt"
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/pdiddy/bibtools/internal/observability"
	"github.com/pdiddy/bibtools/pkg/types"
)

// DefaultSize is the LRU front capacity used when none is configured.
const DefaultSize = 1024

// Store is durable key-value persistence for cache entries. Implementations
// must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (types.CacheEntry, bool, error)
	Put(ctx context.Context, entry types.CacheEntry) error
}

// Cache is a read-through, write-back cache over a Store.
type Cache struct {
	store   Store
	front   *lru.Cache[string, types.CacheEntry]
	logger  zerolog.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for degraded store operations.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithMetrics records lookups and writes on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// New returns a Cache over store with an LRU front of size entries. A nil
// store keeps entries in the front only.
func New(store Store, size int, opts ...Option) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	front, err := lru.New[string, types.CacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("creating cache front: %w", err)
	}
	c := &Cache{
		store:  store,
		front:  front,
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Get returns the records cached for q at provider. An empty, found result
// means the provider was asked and had nothing.
func (c *Cache) Get(ctx context.Context, provider string, q types.Query) ([]types.CandidateRecord, bool) {
	key := q.ProviderKey(provider)
	if e, ok := c.front.Get(key); ok {
		c.metrics.RecordCacheLookup("hit")
		return slices.Clone(e.Records), true
	}
	if c.store == nil {
		c.metrics.RecordCacheLookup("miss")
		return nil, false
	}

	e, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.metrics.RecordCacheLookup("error")
		c.logger.Warn().Err(fmt.Errorf("%w: %w", types.ErrCacheUnavailable, err)).
			Str("key", key).Msg("cache read failed, treating as miss")
		return nil, false
	}
	if !ok {
		c.metrics.RecordCacheLookup("miss")
		return nil, false
	}
	c.front.Add(key, e)
	c.metrics.RecordCacheLookup("hit")
	return slices.Clone(e.Records), true
}

// Put stores records for q at provider.
func (c *Cache) Put(ctx context.Context, provider string, q types.Query, records []types.CandidateRecord) {
	e := types.CacheEntry{
		Key:      q.ProviderKey(provider),
		Query:    q,
		Records:  slices.Clone(records),
		StoredAt: c.now().UTC(),
	}
	c.front.Add(e.Key, e)
	if c.store == nil {
		c.metrics.RecordCacheWrite("ok")
		return
	}
	if err := c.store.Put(ctx, e); err != nil {
		c.metrics.RecordCacheWrite("error")
		c.logger.Warn().Err(fmt.Errorf("%w: %w", types.ErrCacheUnavailable, err)).
			Str("key", e.Key).Msg("cache write dropped")
		return
	}
	c.metrics.RecordCacheWrite("ok")
}

// Len returns the number of entries held in the in-memory front.
func (c *Cache) Len() int {
	return c.front.Len()
}
