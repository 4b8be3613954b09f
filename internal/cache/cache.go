// Package cache provides the in-memory content cache: metadata for every
// recently served asset, plus inline body bytes for assets at or below the
// configured threshold. Eviction is least-recently-used against a total
// weight budget. The filesystem stays authoritative: a hit whose recorded
// modification time no longer matches the file is treated as a miss.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/ksmlabs/ksmserver/internal/metrics"
)

// entryOverhead is the fixed weight charged per entry on top of any inline
// bytes, so that metadata-only entries still occupy budget.
const entryOverhead = 256

// Entry holds cached metadata and, for small assets, the body bytes.
// Entries are immutable once published; a stale file produces a fresh
// entry, never a mutation of the old one.
type Entry struct {
	Path        string
	Size        int64
	ContentType string
	ModTime     time.Time
	Body        []byte // nil when Size exceeds the inline threshold

	element *list.Element // guarded by the owning cache's mutex
}

// Inline reports whether the entry carries the asset body.
func (e *Entry) Inline() bool { return e.Body != nil }

func (e *Entry) weight() int64 { return entryOverhead + int64(len(e.Body)) }

// Config bounds the cache.
type Config struct {
	// MaxWeight is the eviction budget: inline bytes plus per-entry overhead.
	MaxWeight int64
	// InlineThreshold is the largest asset size cached with its body.
	InlineThreshold int64
}

// DefaultConfig returns the cache bounds used when none are configured.
func DefaultConfig() Config {
	return Config{
		MaxWeight:       64 << 20,
		InlineThreshold: 256 << 10,
	}
}

// Cache is a weighted LRU over resolved asset paths. All mutation is
// internally synchronized; callers must never hold filesystem operations
// inside Lookup/Populate, both of which only touch in-memory state.
//
// A single mutex guards the whole structure, so a Lookup can wait on a
// Populate of an unrelated key. Lookup mutates LRU order and Populate may
// evict, so even reads are writes here; the critical sections are a few map
// and list operations with no I/O. Shard the map if this ever shows up in
// profiles.
type Cache struct {
	mu        sync.Mutex
	cfg       Config
	weight    int64
	items     map[string]*Entry
	evictList *list.List // front = most recently used, values are *Entry
}

// New creates an empty cache with the given bounds. Zero or negative bounds
// fall back to defaults.
func New(cfg Config) *Cache {
	def := DefaultConfig()
	if cfg.MaxWeight <= 0 {
		cfg.MaxWeight = def.MaxWeight
	}
	if cfg.InlineThreshold <= 0 {
		cfg.InlineThreshold = def.InlineThreshold
	}
	return &Cache{
		cfg:       cfg,
		items:     make(map[string]*Entry),
		evictList: list.New(),
	}
}

// InlineThreshold returns the largest size cached with inline bytes.
func (c *Cache) InlineThreshold() int64 { return c.cfg.InlineThreshold }

// Lookup returns the entry for path if present and still current relative
// to modTime, the caller's fresh stat of the file. A stale entry is
// invalidated and reported as a miss.
func (c *Cache) Lookup(path string, modTime time.Time) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[path]
	if !ok {
		metrics.CacheMissesTotal.Inc()
		return nil, false
	}
	if !e.ModTime.Equal(modTime) {
		c.remove(e)
		metrics.CacheMissesTotal.Inc()
		return nil, false
	}
	c.evictList.MoveToFront(e.element)
	metrics.CacheHitsTotal.Inc()
	return e, true
}

// Populate inserts or replaces the entry for e.Path and then evicts from
// the LRU tail until the weight budget holds. Bodies larger than the inline
// threshold are dropped to metadata-only.
func (c *Cache) Populate(e *Entry) {
	if e.Size > c.cfg.InlineThreshold {
		e.Body = nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.items[e.Path]; ok {
		c.remove(old)
	}
	e.element = c.evictList.PushFront(e)
	c.items[e.Path] = e
	c.weight += e.weight()

	for c.weight > c.cfg.MaxWeight && c.evictList.Len() > 0 {
		oldest := c.evictList.Back()
		c.remove(oldest.Value.(*Entry))
		metrics.CacheEvictionsTotal.Inc()
	}
	c.publishGauges()
}

// Invalidate drops the entry for path, if any.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[path]; ok {
		c.remove(e)
		c.publishGauges()
	}
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Weight returns the current total weight in bytes.
func (c *Cache) Weight() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.weight
}

func (c *Cache) remove(e *Entry) {
	c.evictList.Remove(e.element)
	delete(c.items, e.Path)
	c.weight -= e.weight()
}

func (c *Cache) publishGauges() {
	metrics.CacheWeightBytes.Set(float64(c.weight))
	metrics.CacheEntries.Set(float64(len(c.items)))
}
