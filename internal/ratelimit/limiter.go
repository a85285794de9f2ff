// internal/ratelimit/limiter.go
package ratelimit

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Default navigation budget: one page load every six seconds per host with no
// burst. Human-paced browsing rarely does better.
const (
	DefaultInterval = 6 * time.Second
	DefaultBurst    = 1
)

// Limiter paces navigations.
type Limiter interface {
	// Wait blocks until a navigation to urlStr may proceed or ctx is done.
	Wait(ctx context.Context, urlStr string) error
}

// HostLimiter keeps one token bucket per host so traffic to the job board
// and to third-party apply pages is paced independently.
type HostLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	perHost  rate.Limit
	burst    int
}

// NewHostLimiter returns a limiter allowing one navigation per interval per
// host. A non-positive interval selects DefaultInterval.
func NewHostLimiter(interval time.Duration, burst int) *HostLimiter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		perHost:  rate.Every(interval),
		burst:    burst,
	}
}

// Wait implements Limiter. URLs without a host are not limited.
func (l *HostLimiter) Wait(ctx context.Context, urlStr string) error {
	host := hostOf(urlStr)
	if host == "" {
		return ctx.Err()
	}
	return l.limiter(host).Wait(ctx)
}

// Allow reports whether a navigation to urlStr may proceed right now,
// consuming a token when it may.
func (l *HostLimiter) Allow(urlStr string) bool {
	host := hostOf(urlStr)
	if host == "" {
		return true
	}
	return l.limiter(host).Allow()
}

// SetInterval changes the pace for one host.
func (l *HostLimiter) SetInterval(host string, interval time.Duration, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters[host]; ok {
		lim.SetLimit(rate.Every(interval))
		lim.SetBurst(burst)
		return
	}
	l.limiters[host] = rate.NewLimiter(rate.Every(interval), burst)
}

func (l *HostLimiter) limiter(host string) *rate.Limiter {
	l.mu.RLock()
	lim, ok := l.limiters[host]
	l.mu.RUnlock()
	if ok {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters[host]; ok {
		return lim
	}
	lim = rate.NewLimiter(l.perHost, l.burst)
	l.limiters[host] = lim
	return lim
}

// Unlimited never waits.
type Unlimited struct{}

// Wait implements Limiter.
func (Unlimited) Wait(ctx context.Context, _ string) error { return ctx.Err() }

func hostOf(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Host
}
