package embeds

import (
	"context"
	"log/slog"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is the ResultCache: a bounded LRU from normalized URL to result,
// optionally backed by a persistent Repository. Entries never expire; they
// leave only through capacity eviction. Safe for concurrent use.
type Cache struct {
	entries *lru.Cache[string, Result]
	store   Repository
	logger  *slog.Logger

	hits       atomic.Int64
	storeHits  atomic.Int64
	misses     atomic.Int64
	insertions atomic.Int64
}

// CacheStats reports cache effectiveness counters.
type CacheStats struct {
	Entries    int   `json:"entries"`
	Hits       int64 `json:"hits"`
	StoreHits  int64 `json:"storeHits"`
	Misses     int64 `json:"misses"`
	Insertions int64 `json:"insertions"`
}

// NewCache creates a cache holding at most size results. store may be nil.
func NewCache(size int, store Repository, logger *slog.Logger) (*Cache, error) {
	if size <= 0 {
		return nil, ErrInvalidCacheSize
	}
	entries, err := lru.New[string, Result](size)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{entries: entries, store: store, logger: logger}, nil
}

// Get returns the result cached for key, refreshing its recency. On an LRU
// miss the persistent store is consulted and a hit there is promoted.
func (c *Cache) Get(ctx context.Context, key string) (Result, bool) {
	if res, ok := c.entries.Get(key); ok {
		c.hits.Add(1)
		return res, true
	}

	if c.store != nil {
		stored, err := c.store.Get(ctx, key)
		if err != nil {
			c.logger.Warn("[EMBED] Persistent cache lookup failed", "url", key, "error", err)
		} else if stored != nil && stored.Title != "" {
			c.entries.Add(key, *stored)
			c.storeHits.Add(1)
			return *stored, true
		}
	}

	c.misses.Add(1)
	return Result{}, false
}

// Peek reports whether key is cached in memory without touching recency.
func (c *Cache) Peek(key string) (Result, bool) {
	return c.entries.Peek(key)
}

// Put inserts a result. Re-inserting a key replaces the value and makes it
// most recently used. The write-through to the store is best-effort.
func (c *Cache) Put(ctx context.Context, key string, res Result) {
	c.entries.Add(key, res)
	c.insertions.Add(1)

	if c.store != nil {
		if err := c.store.Set(ctx, key, &res); err != nil {
			c.logger.Warn("[EMBED] Failed to persist embed result", "url", key, "error", err)
		}
	}
}

// Len returns the number of results held in memory.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Entries:    c.entries.Len(),
		Hits:       c.hits.Load(),
		StoreHits:  c.storeHits.Load(),
		Misses:     c.misses.Load(),
		Insertions: c.insertions.Load(),
	}
}
