// Package milvus provides an in-process, size-bounded LRU object cache.
// It is built for hosts that hold large, variably-sized blobs (loaded
// indexes, buffers) and need to avoid recomputing or re-reading them: the
// cache tracks total byte usage and recency of access, and evicts
// least-recently-used entries once usage exceeds the configured capacity.
//
// Example usage:
//
//	cache, err := milvus.NewCache(1 << 30) // 1 GiB
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cache.Insert("segment-7", milvus.Blob(buf))
//	if data, ok := cache.Get("segment-7"); ok {
//	    use(data)
//	}
package milvus

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/fireae/milvus/internal/recency"
	"github.com/fireae/milvus/internal/stats"
)

// Sentinel errors for well-defined error conditions.
var (
	// ErrInvalidCapacity indicates a non-positive capacity was passed to NewCache.
	ErrInvalidCapacity = errors.New("milvus: capacity must be positive")

	// ErrInvalidThreshold indicates a threshold fraction outside (0, 1].
	ErrInvalidThreshold = errors.New("milvus: threshold fraction must be in (0, 1]")
)

// entry wraps one cached payload. Overwriting an existing key mutates the
// entry in place; the recency node keeps pointing at the same entry.
type entry struct {
	data DataObj
}

// Cache is a size-bounded LRU cache. A Cache is safe for concurrent use by
// multiple goroutines.
//
// usage and the recency store form a single logical unit guarded by mu:
// after every public operation returns, usage equals the sum of the sizes of
// the entries currently in the store.
type Cache struct {
	mu        sync.Mutex
	usage     int64
	capacity  int64
	threshold float64
	store     *recency.Store[*entry]

	logger *zap.Logger
	stats  stats.Collector

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewCache creates a Cache holding at most capacity bytes of payloads.
// Capacity must be positive. Behavior is tuned with options; if none are
// given, sensible defaults are used (threshold fraction 0.85, no entry-count
// bound, no-op logger and collector).
func NewCache(capacity int64, opts ...Option) (*Cache, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	if cfg.thresholdFraction <= 0 || cfg.thresholdFraction > 1 {
		return nil, ErrInvalidThreshold
	}

	c := &Cache{
		capacity:  capacity,
		threshold: cfg.thresholdFraction,
		logger:    cfg.logger,
		stats:     cfg.stats,
	}

	// The store invokes the callback for every removal (erase, purge, and
	// entry-count-bound eviction) while c.mu is held by the operation that
	// triggered it, so usage stays in step with the store's contents.
	c.store = recency.New(cfg.maxEntries, func(key string, e *entry) {
		c.usage -= e.data.Size()
		c.logger.Debug("entry removed",
			zap.String("key", key),
			zap.Int64("size", e.data.Size()),
			zap.Int64("usage", c.usage),
		)
	})

	c.stats.SetGauge(stats.MetricCapacityBytes, capacity)

	c.logger.Debug("cache initialized",
		zap.Int64("capacity", capacity),
		zap.Float64("thresholdFraction", cfg.thresholdFraction),
		zap.Int("maxEntries", cfg.maxEntries),
	)

	return c, nil
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Len()
}

// Usage returns the total byte size of the cached payloads.
func (c *Cache) Usage() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// Capacity returns the current capacity limit in bytes.
func (c *Cache) Capacity() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capacity
}

// Exists reports whether key is cached. It does not count as an access for
// recency purposes.
func (c *Cache) Exists(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Exists(key)
}

// Get returns the payload for key and promotes the key to
// most-recently-used. The second return value reports whether the key was
// present; a miss is not an error.
func (c *Cache) Get(key string) (DataObj, bool) {
	c.mu.Lock()
	var data DataObj
	e, ok := c.store.Get(key)
	if ok {
		data = e.data
	}
	c.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		c.stats.IncCounter(stats.MetricMisses, 1)
		return nil, false
	}
	c.hits.Add(1)
	c.stats.IncCounter(stats.MetricHits, 1)
	return data, true
}

// Insert adds data under key, replacing any existing payload. Overwriting
// adjusts usage by the size difference; a new key is inserted at the
// most-recently-used position. If the insert pushes usage over capacity,
// least-recently-used entries are evicted until usage drops below the
// eviction threshold.
//
// A nil payload is ignored.
func (c *Cache) Insert(key string, data DataObj) {
	if data == nil {
		c.logger.Warn("ignoring nil payload", zap.String("key", key))
		return
	}
	size := data.Size()

	c.mu.Lock()
	if e, ok := c.store.Get(key); ok {
		// Key already exists: overwrite the old payload in place.
		c.usage -= e.data.Size()
		e.data = data
		c.usage += size
	} else {
		if evicted := c.store.Put(key, &entry{data: data}); evicted {
			// The entry-count bound dropped the least-recently-used entry;
			// the store callback already settled usage.
			c.evictions.Add(1)
			c.stats.IncCounter(stats.MetricEvictions, 1)
		}
		c.usage += size
	}
	usage, capacity := c.usage, c.capacity
	entries := c.store.Len()
	c.mu.Unlock()

	c.stats.IncCounter(stats.MetricInserts, 1)
	c.stats.SetGauge(stats.MetricUsageBytes, usage)
	c.stats.SetGauge(stats.MetricEntries, int64(entries))

	c.logger.Debug("insert",
		zap.String("key", key),
		zap.Int64("size", size),
		zap.Int64("usage", usage),
	)

	if usage > capacity {
		c.logger.Debug("usage exceeds capacity, freeing memory",
			zap.Int64("usage", usage),
			zap.Int64("capacity", capacity),
		)
		c.freeMemory()
	}
}

// Erase removes key from the cache and subtracts its payload's size from
// usage. Erasing an absent key is a no-op.
func (c *Cache) Erase(key string) {
	c.erase(key)
}

// erase reports whether the key was present, so the eviction pass can count
// only the victims it actually removed.
func (c *Cache) erase(key string) bool {
	c.mu.Lock()
	removed := c.store.Erase(key)
	usage := c.usage
	entries := c.store.Len()
	c.mu.Unlock()

	if removed {
		c.stats.SetGauge(stats.MetricUsageBytes, usage)
		c.stats.SetGauge(stats.MetricEntries, int64(entries))
	}
	return removed
}

// Clear removes all entries and resets usage to zero.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.store.Purge()
	c.usage = 0
	c.mu.Unlock()

	c.stats.SetGauge(stats.MetricUsageBytes, 0)
	c.stats.SetGauge(stats.MetricEntries, 0)
	c.logger.Debug("cache cleared")
}

// SetCapacity changes the capacity limit and synchronously evicts entries if
// the cache now exceeds it. Non-positive values are ignored.
func (c *Cache) SetCapacity(capacity int64) {
	if capacity <= 0 {
		c.logger.Warn("ignoring non-positive capacity", zap.Int64("capacity", capacity))
		return
	}

	c.mu.Lock()
	c.capacity = capacity
	c.mu.Unlock()

	c.stats.SetGauge(stats.MetricCapacityBytes, capacity)
	c.freeMemory()
}

// freeMemory evicts least-recently-used entries until usage drops below
// threshold = capacity * thresholdFraction. Evicting below the threshold
// rather than to exactly capacity keeps a subsequent insert from immediately
// re-triggering eviction.
//
// The pass runs in two phases. The victim scan walks the recency order from
// the least-recently-used end under the lock, accumulating keys until their
// sizes cover usage - threshold. The erase phase then runs outside that
// critical section, removing victims one at a time; each removal re-acquires
// the lock and re-validates presence. A key promoted by a concurrent Get
// between the two phases is still evicted: the decision was valid at scan
// time, and giving it up would mean holding the lock across the whole pass.
func (c *Cache) freeMemory() {
	c.mu.Lock()
	if c.usage <= c.capacity {
		// Another goroutine got here first, or an erase landed between the
		// caller's check and now.
		c.mu.Unlock()
		return
	}

	threshold := int64(float64(c.capacity) * c.threshold)
	delta := c.usage - threshold

	var victims []string
	var released int64
	for _, key := range c.store.Keys() {
		if released >= delta {
			break
		}
		e, ok := c.store.Peek(key)
		if !ok {
			continue
		}
		victims = append(victims, key)
		released += e.data.Size()
	}
	c.mu.Unlock()

	if len(victims) == 0 {
		// Usage over capacity with nothing to evict means usage and the
		// store disagree, which only happens when a caller broke the
		// stable-size contract on a cached payload.
		c.logger.Error("over capacity with no evictable entries",
			zap.Int64("delta", delta),
		)
		return
	}

	c.logger.Debug("eviction scan complete",
		zap.Int("victims", len(victims)),
		zap.Int64("toRelease", released),
	)

	// Erase in sorted key order so eviction passes are reproducible
	// regardless of how the recency order shifted since the scan.
	sort.Strings(victims)

	var evicted int64
	for _, key := range victims {
		if c.erase(key) {
			evicted++
		}
	}
	if evicted > 0 {
		c.evictions.Add(evicted)
		c.stats.IncCounter(stats.MetricEvictions, evicted)
		c.stats.ObserveHistogram(stats.MetricEvictionReleasedBytes, float64(released))
	}

	c.logState()
}

// logState reports the cache's occupancy after an eviction pass.
func (c *Cache) logState() {
	c.mu.Lock()
	entries := c.store.Len()
	usage, capacity := c.usage, c.capacity
	c.mu.Unlock()

	c.logger.Debug("cache state",
		zap.Int("entries", entries),
		zap.Int64("usage", usage),
		zap.Int64("capacity", capacity),
	)
}

// Stats contains a point-in-time snapshot of cache statistics.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Entries   int
	Usage     int64
	Capacity  int64
}

// HitRate returns the cache hit rate as a percentage.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// Stats returns a snapshot of the cache's counters and occupancy.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	s := Stats{
		Entries:  c.store.Len(),
		Usage:    c.usage,
		Capacity: c.capacity,
	}
	c.mu.Unlock()

	s.Hits = c.hits.Load()
	s.Misses = c.misses.Load()
	s.Evictions = c.evictions.Load()
	return s
}
