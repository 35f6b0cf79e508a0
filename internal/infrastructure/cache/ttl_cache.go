package cache

import (
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Constants for TTL cache configuration
const (
	DefaultSweepInterval = 5 * time.Minute
	entryOverheadBytes   = 48
	unknownValueBytes    = 64
)

// Stats is a point-in-time snapshot of cache counters
type Stats struct {
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
	HitRate      float64 `json:"hit_rate"`
	EntryCount   int     `json:"entry_count"`
	ApproxMemory int64   `json:"approx_memory"`
}

// StatsProvider is implemented by caches that expose Stats
type StatsProvider interface {
	Stats() Stats
}

// TTLCache is a namespaced key/value store with per-entry expiry.
// Expired entries are evicted lazily on Get and by a background sweep.
// Values are returned as stored and must be treated as read-only.
type TTLCache[V any] struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry[V]

	now           func() time.Time
	sweepInterval time.Duration
	sizer         func(V) int
	logger        *zap.Logger

	stopCh  chan struct{}
	stopped int32

	hits   int64
	misses int64
}

// cacheEntry wraps a cached value with its storage time and ttl
type cacheEntry[V any] struct {
	data     V
	storedAt time.Time
	ttl      time.Duration
	size     int
}

// isExpired reports whether more than ttl elapsed since the entry was stored
func (e *cacheEntry[V]) isExpired(now time.Time) bool {
	return now.Sub(e.storedAt) > e.ttl
}

// Option is a functional option for configuring a TTLCache
type Option[V any] func(*TTLCache[V])

// WithSweepInterval sets how often expired entries are evicted.
// Zero or negative disables the background sweep.
func WithSweepInterval[V any](d time.Duration) Option[V] {
	return func(c *TTLCache[V]) {
		c.sweepInterval = d
	}
}

// WithLogger sets the logger for the cache
func WithLogger[V any](logger *zap.Logger) Option[V] {
	return func(c *TTLCache[V]) {
		c.logger = logger
	}
}

// WithClock overrides the time source
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *TTLCache[V]) {
		c.now = now
	}
}

// WithSizer sets the function used to estimate the memory held by a value
func WithSizer[V any](sizer func(V) int) Option[V] {
	return func(c *TTLCache[V]) {
		c.sizer = sizer
	}
}

// New creates a TTL cache and starts its sweeper
func New[V any](opts ...Option[V]) *TTLCache[V] {
	c := &TTLCache[V]{
		entries:       make(map[string]*cacheEntry[V]),
		now:           time.Now,
		sweepInterval: DefaultSweepInterval,
		sizer:         defaultSizer[V],
		logger:        zap.NewNop(),
		stopCh:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.sweepInterval > 0 {
		go c.sweepLoop()
	}

	return c
}

// Key joins a namespace prefix such as "vk:" with the distinguishing request parameters
func Key(prefix string, parts ...string) string {
	return prefix + strings.Join(parts, ":")
}

// Get returns the live value stored under key
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && entry.isExpired(c.now()) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		atomic.AddInt64(&c.misses, 1)
		var zero V
		return zero, false
	}

	atomic.AddInt64(&c.hits, 1)
	return entry.data, true
}

// Set stores value under key, replacing any existing entry. A non-positive
// ttl is already expired: nothing is stored and any previous entry is dropped.
func (c *TTLCache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		c.Delete(key)
		return
	}

	entry := &cacheEntry[V]{
		data:     value,
		storedAt: c.now(),
		ttl:      ttl,
		size:     len(key) + entryOverheadBytes + c.sizer(value),
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()

	c.logger.Debug("Cached value",
		zap.String("key", key),
		zap.Duration("ttl", ttl))
}

// Delete removes key and reports whether it was present
func (c *TTLCache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	return true
}

// DeletePattern removes every live key containing substr and returns how many were removed.
// Expired entries met along the way are evicted without being counted.
func (c *TTLCache[V]) DeletePattern(substr string) int {
	now := c.now()
	removed := 0

	c.mu.Lock()
	for key, entry := range c.entries {
		if !strings.Contains(key, substr) {
			continue
		}
		delete(c.entries, key)
		if !entry.isExpired(now) {
			removed++
		}
	}
	c.mu.Unlock()

	c.logger.Debug("Invalidated cache keys by pattern",
		zap.String("pattern", substr),
		zap.Int("removed", removed))
	return removed
}

// Clear removes every entry. Hit and miss counters are kept.
func (c *TTLCache[V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry[V])
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired or not
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns the current counters
func (c *TTLCache[V]) Stats() Stats {
	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)

	c.mu.Lock()
	count := len(c.entries)
	var memory int64
	for _, entry := range c.entries {
		memory += int64(entry.size)
	}
	c.mu.Unlock()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Hits:         hits,
		Misses:       misses,
		HitRate:      hitRate,
		EntryCount:   count,
		ApproxMemory: memory,
	}
}

// ResetStats zeroes the hit and miss counters
func (c *TTLCache[V]) ResetStats() {
	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
}

// Sweep evicts every expired entry and returns how many were removed
func (c *TTLCache[V]) Sweep() int {
	now := c.now()
	removed := 0

	c.mu.Lock()
	for key, entry := range c.entries {
		if entry.isExpired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.logger.Debug("Swept expired cache entries", zap.Int("removed", removed))
	}
	return removed
}

// Close stops the background sweep. It is safe to call more than once.
func (c *TTLCache[V]) Close() {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
}

// sweepLoop periodically removes expired entries
func (c *TTLCache[V]) sweepLoop() {
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						c.logger.Error("Panic in cache sweep", zap.Any("panic", r))
					}
				}()
				c.Sweep()
			}()
		}
	}
}

// defaultSizer estimates the payload size of common cached value types
func defaultSizer[V any](v V) int {
	switch val := any(v).(type) {
	case []byte:
		return len(val)
	case string:
		return len(val)
	case json.RawMessage:
		return len(val)
	case []json.RawMessage:
		n := 0
		for _, item := range val {
			n += len(item)
		}
		return n
	default:
		return unknownValueBytes
	}
}

// Ensure TTLCache exposes Stats
var _ StatsProvider = (*TTLCache[[]byte])(nil)
