// Package proxy rotates the outbound proxies sessions are opened through.
package proxy

import (
	"strings"
	"sync"
	"time"
)

// DefaultCooldown is how long a proxy is skipped after a blocked run.
const DefaultCooldown = 30 * time.Minute

// ProxyPool hands out proxies round-robin, skipping the ones recently
// reported as blocked.
type ProxyPool struct {
	proxies  []string
	index    int
	mu       sync.Mutex
	failed   map[string]time.Time
	cooldown time.Duration
	now      func() time.Time
}

// Option configures a ProxyPool.
type Option func(*ProxyPool)

// WithCooldown sets how long a failed proxy is skipped.
func WithCooldown(d time.Duration) Option {
	return func(p *ProxyPool) { p.cooldown = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *ProxyPool) { p.now = now }
}

// NewProxyPool creates a pool from proxy addresses. Blank entries are
// dropped and a bare host:port gets an http:// scheme.
func NewProxyPool(proxies []string, opts ...Option) *ProxyPool {
	p := &ProxyPool{
		failed:   make(map[string]time.Time),
		cooldown: DefaultCooldown,
		now:      time.Now,
	}
	for _, raw := range proxies {
		if addr := Normalize(raw); addr != "" {
			p.proxies = append(p.proxies, addr)
		}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Normalize trims addr and adds the http scheme when it has none.
func Normalize(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" || strings.Contains(addr, "://") {
		return addr
	}
	return "http://" + addr
}

// Len is the number of configured proxies.
func (p *ProxyPool) Len() int {
	return len(p.proxies)
}

// GetNext returns the next healthy proxy, or "" when the pool is empty.
// When every proxy is cooling down, the one that failed longest ago is
// returned so runs are never refused outright.
func (p *ProxyPool) GetNext() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.proxies) == 0 {
		return ""
	}

	now := p.now()
	oldest := ""
	var oldestAt time.Time
	for range p.proxies {
		proxy := p.proxies[p.index]
		p.index = (p.index + 1) % len(p.proxies)

		failedAt, ok := p.failed[proxy]
		if !ok {
			return proxy
		}
		if now.Sub(failedAt) >= p.cooldown {
			delete(p.failed, proxy)
			return proxy
		}
		if oldest == "" || failedAt.Before(oldestAt) {
			oldest, oldestAt = proxy, failedAt
		}
	}
	return oldest
}

// MarkFailed puts proxy on cooldown.
func (p *ProxyPool) MarkFailed(proxy string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed[proxy] = p.now()
}

// MarkHealthy clears the failure status of a proxy
func (p *ProxyPool) MarkHealthy(proxy string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.failed, proxy)
}

// Healthy counts the proxies not cooling down.
func (p *ProxyPool) Healthy() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	n := 0
	for _, proxy := range p.proxies {
		if failedAt, ok := p.failed[proxy]; !ok || now.Sub(failedAt) >= p.cooldown {
			n++
		}
	}
	return n
}
