package modelcache

import (
	"fmt"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/conduit-lang/metamodel/internal/orm/schema"
)

const (
	// DefaultMaxEntries bounds the number of cached models
	DefaultMaxEntries = 1024
	// DefaultSizeLimit bounds the summed entry sizes. Zero disables the bound.
	DefaultSizeLimit int64 = 10240
)

type entry struct {
	model    schema.ReadOnlyModel
	size     int64
	priority Priority
}

type options struct {
	maxEntries int
	sizeLimit  int64
	registerer prometheus.Registerer
	name       string
	log        *zap.Logger
}

// Option configures an LRUCache
type Option func(*options)

// WithMaxEntries bounds the number of entries. When the bound is hit the
// least recently used entry goes regardless of its priority.
func WithMaxEntries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxEntries = n
		}
	}
}

// WithSizeLimit bounds the summed entry sizes; zero disables the bound
func WithSizeLimit(limit int64) Option {
	return func(o *options) {
		if limit >= 0 {
			o.sizeLimit = limit
		}
	}
}

// WithRegisterer exports the cache gauges and eviction counter. name is
// the value of the "cache" label.
func WithRegisterer(reg prometheus.Registerer, name string) Option {
	return func(o *options) {
		if reg != nil && name != "" {
			o.registerer = reg
			o.name = name
		}
	}
}

// WithZap sets the logger used to trace evictions
func WithZap(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// LRUCache is the default Cache. Entries are weighed by EntryOptions.Size;
// when a new entry does not fit, entries are compacted lowest priority
// first and least recently used first within a priority.
type LRUCache struct {
	mu        sync.Mutex
	lru       *simplelru.LRU[any, *entry]
	sizeLimit int64
	used      int64
	// reason labels evictions reported by onEvict; empty for explicit removals
	reason string

	stats   counters
	metrics *cacheMetrics
	log     *zap.Logger
}

var _ Cache = (*LRUCache)(nil)

// NewLRUCache creates an empty cache
func NewLRUCache(opts ...Option) (*LRUCache, error) {
	o := &options{
		maxEntries: DefaultMaxEntries,
		sizeLimit:  DefaultSizeLimit,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	c := &LRUCache{
		sizeLimit: o.sizeLimit,
		reason:    evictCapacity,
		log:       o.log,
	}
	lru, err := simplelru.NewLRU[any, *entry](o.maxEntries, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("create model cache: %w", err)
	}
	c.lru = lru

	if o.registerer != nil {
		if c.metrics, err = newCacheMetrics(o.registerer, o.name); err != nil {
			return nil, fmt.Errorf("register model cache metrics: %w", err)
		}
	}
	return c, nil
}

// onEvict runs under c.mu for every entry leaving the LRU
func (c *LRUCache) onEvict(key any, e *entry) {
	c.used -= e.size
	if c.reason == "" {
		return
	}
	c.stats.evictions.Add(1)
	c.metrics.recordEviction(c.reason)
	c.log.Debug("evicted cached model",
		zap.Any("key", key),
		zap.String("reason", c.reason),
		zap.Stringer("priority", e.priority))
}

// Get returns the model stored under key and marks it recently used
func (c *LRUCache) Get(key any) (schema.ReadOnlyModel, bool) {
	c.mu.Lock()
	e, ok := c.lru.Get(key)
	c.mu.Unlock()

	if !ok {
		c.stats.misses.Add(1)
		return nil, false
	}
	c.stats.hits.Add(1)
	return e.model, true
}

// Set stores model under key. It returns ErrEntryTooLarge, leaving the
// cache without an entry for key, when the entry cannot fit even after
// every removable entry is compacted.
func (c *LRUCache) Set(key any, model schema.ReadOnlyModel, opts EntryOptions) error {
	size := opts.Size
	if size <= 0 {
		size = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeLocked(key, "")
	if c.sizeLimit > 0 {
		if err := c.compactLocked(c.sizeLimit - size); err != nil {
			c.metrics.update(c.lru.Len(), c.used)
			return fmt.Errorf("cache %v: %w", key, err)
		}
	}

	c.reason = evictCapacity
	c.lru.Add(key, &entry{model: model, size: size, priority: opts.Priority})
	c.used += size
	c.stats.sets.Add(1)
	c.metrics.update(c.lru.Len(), c.used)
	return nil
}

// compactLocked evicts until the used size is at most target. Nothing is
// evicted when target cannot be reached.
func (c *LRUCache) compactLocked(target int64) error {
	if c.used <= target {
		return nil
	}

	var pinned int64
	for _, e := range c.lru.Values() {
		if e.priority >= PriorityNeverRemove {
			pinned += e.size
		}
	}
	if target < pinned {
		return fmt.Errorf("%w: %d units needed, %d pinned, limit %d",
			ErrEntryTooLarge, c.sizeLimit-target, pinned, c.sizeLimit)
	}

	for c.used > target {
		victim, ok := c.victimLocked()
		if !ok {
			break
		}
		c.removeLocked(victim, evictSize)
	}
	return nil
}

// victimLocked returns the least recently used entry of the lowest priority
func (c *LRUCache) victimLocked() (any, bool) {
	var (
		victim any
		best   = PriorityNeverRemove
		found  bool
	)
	for _, key := range c.lru.Keys() {
		e, ok := c.lru.Peek(key)
		if !ok || e.priority >= best {
			continue
		}
		victim, best, found = key, e.priority, true
	}
	return victim, found
}

func (c *LRUCache) removeLocked(key any, reason string) bool {
	c.reason = reason
	removed := c.lru.Remove(key)
	c.reason = evictCapacity
	return removed
}

// Remove drops the entry stored under key
func (c *LRUCache) Remove(key any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := c.removeLocked(key, "")
	c.metrics.update(c.lru.Len(), c.used)
	return removed
}

// Len returns the number of entries
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Clear drops every entry without counting evictions
func (c *LRUCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reason = ""
	c.lru.Purge()
	c.reason = evictCapacity
	c.used = 0
	c.metrics.update(0, 0)
}

// Stats returns a snapshot of the cache counters
func (c *LRUCache) Stats() Stats {
	c.mu.Lock()
	entries, used := c.lru.Len(), c.used
	c.mu.Unlock()

	return Stats{
		Hits:      c.stats.hits.Load(),
		Misses:    c.stats.misses.Load(),
		Sets:      c.stats.sets.Load(),
		Evictions: c.stats.evictions.Load(),
		Entries:   entries,
		Size:      used,
	}
}
