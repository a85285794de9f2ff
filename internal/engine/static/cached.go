package static

import (
	"context"
	"time"

	"github.com/law-makers/jobcrawl/internal/cache"
)

type freshKey struct{}

// Fresh marks ctx so a CachedLoader skips its cache. Reloads use it: a
// challenge page must be fetched again, not served from memory.
func Fresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, freshKey{}, true)
}

func isFresh(ctx context.Context) bool {
	v, _ := ctx.Value(freshKey{}).(bool)
	return v
}

// CachedLoader serves repeat loads of a URL from a cache, the way a browser
// serves back navigation from memory.
type CachedLoader struct {
	next  Loader
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedLoader wraps next with c. ttl <= 0 uses the cache default.
func NewCachedLoader(next Loader, c cache.Cache, ttl time.Duration) *CachedLoader {
	return &CachedLoader{next: next, cache: c, ttl: ttl}
}

// Load implements Loader.
func (l *CachedLoader) Load(ctx context.Context, url string) (Page, error) {
	if !isFresh(ctx) {
		if e, ok := l.cache.Get(url); ok {
			return Page{URL: e.URL, HTML: e.HTML}, nil
		}
	}
	page, err := l.next.Load(ctx, url)
	if err != nil {
		l.cache.Delete(url)
		return Page{}, err
	}
	l.cache.Set(url, cache.Entry{URL: page.URL, HTML: page.HTML}, l.ttl)
	return page, nil
}
