// Package cache keeps recently fetched documents in memory so returning to a
// results page does not hit the site again.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Entry is one cached document.
type Entry struct {
	URL  string // final URL after redirects
	HTML string
}

func (e Entry) size() int64 {
	// ~1KB overhead for the entry, list element and map slot.
	return int64(len(e.URL)+len(e.HTML)) + 1024
}

// Cache stores documents by request URL.
type Cache interface {
	// Get returns the entry for key if present and not expired.
	Get(key string) (Entry, bool)

	// Set stores an entry for ttl. An existing entry is replaced.
	Set(key string, e Entry, ttl time.Duration)

	// Delete removes key. Missing keys are not an error.
	Delete(key string)

	// Close stops background work.
	Close()
}

// Defaults for NewMemoryCache.
const (
	DefaultMaxBytes = 32 << 20
	DefaultTTL      = 5 * time.Minute
)

type cacheEntry struct {
	key       string
	entry     Entry
	expiresAt time.Time
}

// Stats is a snapshot of cache usage.
type Stats struct {
	Entries int
	Bytes   int64
	Hits    uint64
	Misses  uint64
}

// HitRate is hits over lookups, in percent.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// MemoryCache is an in-memory Cache with LRU eviction by total size.
type MemoryCache struct {
	mu      sync.Mutex
	store   map[string]*list.Element
	lruList *list.List
	maxSize int64
	size    int64
	hits    uint64
	misses  uint64

	now    func() time.Time
	logger zerolog.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a MemoryCache.
type Option func(*MemoryCache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(mc *MemoryCache) { mc.now = now }
}

// WithLogger sets the cache logger.
func WithLogger(l zerolog.Logger) Option {
	return func(mc *MemoryCache) { mc.logger = l }
}

// NewMemoryCache creates a cache holding at most maxSizeBytes. A background
// goroutine drops expired entries every minute until Close.
func NewMemoryCache(maxSizeBytes int64, opts ...Option) *MemoryCache {
	if maxSizeBytes <= 0 {
		maxSizeBytes = DefaultMaxBytes
	}
	ctx, cancel := context.WithCancel(context.Background())
	mc := &MemoryCache{
		store:   make(map[string]*list.Element),
		lruList: list.New(),
		maxSize: maxSizeBytes,
		now:     time.Now,
		logger:  zerolog.Nop(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(mc)
	}
	go mc.cleanupExpired(ctx, time.Minute)
	return mc
}

// Get implements Cache. A hit moves the entry to the front of the LRU list.
func (mc *MemoryCache) Get(key string) (Entry, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	element, ok := mc.store[key]
	if !ok {
		mc.misses++
		return Entry{}, false
	}
	ce := element.Value.(*cacheEntry)
	if mc.now().After(ce.expiresAt) {
		mc.misses++
		mc.remove(element)
		return Entry{}, false
	}
	mc.lruList.MoveToFront(element)
	mc.hits++
	mc.logger.Debug().Str("key", key).Msg("Cache hit")
	return ce.entry, true
}

// Set implements Cache. Entries larger than the whole cache are not stored.
func (mc *MemoryCache) Set(key string, e Entry, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	size := e.size()
	if size > mc.maxSize {
		return
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if element, ok := mc.store[key]; ok {
		mc.remove(element)
	}
	for mc.size+size > mc.maxSize && mc.lruList.Len() > 0 {
		mc.evictLRU()
	}
	mc.store[key] = mc.lruList.PushFront(&cacheEntry{
		key:       key,
		entry:     e,
		expiresAt: mc.now().Add(ttl),
	})
	mc.size += size
}

// Delete implements Cache.
func (mc *MemoryCache) Delete(key string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if element, ok := mc.store[key]; ok {
		mc.remove(element)
	}
}

// Close stops the cleanup goroutine and waits for it.
func (mc *MemoryCache) Close() {
	mc.cancel()
	<-mc.done
}

// Stats returns current usage.
func (mc *MemoryCache) Stats() Stats {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return Stats{
		Entries: mc.lruList.Len(),
		Bytes:   mc.size,
		Hits:    mc.hits,
		Misses:  mc.misses,
	}
}

// remove must be called with the lock held.
func (mc *MemoryCache) remove(element *list.Element) {
	ce := element.Value.(*cacheEntry)
	mc.lruList.Remove(element)
	delete(mc.store, ce.key)
	mc.size -= ce.entry.size()
}

// evictLRU removes the least recently used entry (must be called with lock held)
func (mc *MemoryCache) evictLRU() {
	element := mc.lruList.Back()
	if element == nil {
		return
	}
	mc.logger.Debug().Str("key", element.Value.(*cacheEntry).key).Msg("Evicted from cache (LRU)")
	mc.remove(element)
}

// PurgeExpired drops every expired entry and returns how many were removed.
func (mc *MemoryCache) PurgeExpired() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	now := mc.now()
	n := 0
	var next *list.Element
	for element := mc.lruList.Front(); element != nil; element = next {
		next = element.Next()
		if now.After(element.Value.(*cacheEntry).expiresAt) {
			mc.remove(element)
			n++
		}
	}
	return n
}

func (mc *MemoryCache) cleanupExpired(ctx context.Context, every time.Duration) {
	defer close(mc.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			mc.PurgeExpired()
		case <-ctx.Done():
			return
		}
	}
}
