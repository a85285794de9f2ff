package cache

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestCache(t *testing.T, max int64) (*MemoryCache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)}
	mc := NewMemoryCache(max, WithClock(clock.now))
	t.Cleanup(mc.Close)
	return mc, clock
}

func TestGetSet(t *testing.T) {
	mc, _ := newTestCache(t, 0)

	_, ok := mc.Get("https://cr.indeed.com/jobs")
	assert.False(t, ok)

	mc.Set("https://cr.indeed.com/jobs", Entry{URL: "https://cr.indeed.com/jobs?l=cr", HTML: "<html></html>"}, time.Minute)
	e, ok := mc.Get("https://cr.indeed.com/jobs")
	require.True(t, ok)
	assert.Equal(t, "https://cr.indeed.com/jobs?l=cr", e.URL)

	s := mc.Stats()
	assert.Equal(t, 1, s.Entries)
	assert.Equal(t, uint64(1), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)
	assert.InDelta(t, 50.0, s.HitRate(), 0.001)
}

func TestExpiry(t *testing.T) {
	mc, clock := newTestCache(t, 0)
	mc.Set("a", Entry{HTML: "a"}, time.Minute)
	mc.Set("b", Entry{HTML: "b"}, 10*time.Minute)

	clock.t = clock.t.Add(2 * time.Minute)
	_, ok := mc.Get("a")
	assert.False(t, ok, "expired entries are misses")

	clock.t = clock.t.Add(20 * time.Minute)
	assert.Equal(t, 1, mc.PurgeExpired())
	assert.Equal(t, 0, mc.Stats().Entries)
	assert.Equal(t, int64(0), mc.Stats().Bytes)
}

func TestLRUEviction(t *testing.T) {
	page := strings.Repeat("x", 1000)
	// Room for two entries of ~2KB each.
	mc, _ := newTestCache(t, 4500)

	mc.Set("p1", Entry{HTML: page}, time.Minute)
	mc.Set("p2", Entry{HTML: page}, time.Minute)
	_, _ = mc.Get("p1") // p2 is now least recently used
	mc.Set("p3", Entry{HTML: page}, time.Minute)

	_, ok := mc.Get("p2")
	assert.False(t, ok)
	_, ok = mc.Get("p1")
	assert.True(t, ok)
	_, ok = mc.Get("p3")
	assert.True(t, ok)
}

func TestReplaceAndDelete(t *testing.T) {
	mc, _ := newTestCache(t, 0)
	mc.Set("k", Entry{HTML: "old"}, time.Minute)
	mc.Set("k", Entry{HTML: "new"}, time.Minute)

	e, ok := mc.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", e.HTML)
	assert.Equal(t, 1, mc.Stats().Entries)

	mc.Delete("k")
	mc.Delete("missing")
	assert.Equal(t, int64(0), mc.Stats().Bytes)
}

func TestOversizedEntryIgnored(t *testing.T) {
	mc, _ := newTestCache(t, 2000)
	mc.Set("big", Entry{HTML: strings.Repeat("x", 5000)}, time.Minute)
	assert.Equal(t, 0, mc.Stats().Entries)
}
