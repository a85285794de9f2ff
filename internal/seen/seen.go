// Package seen remembers job ids across runs so repeated scrapes skip
// postings that were already persisted.
package seen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a job id stays marked.
const DefaultTTL = 7 * 24 * time.Hour

// Store answers whether a key was already produced.
type Store interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// Redis keeps keys as expiring "seen:<key>" entries.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedis connects to addr. The connection is verified by Ping.
func NewRedis(addr string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
		prefix: "seen:",
	}
}

// Ping checks the connection.
func (s *Redis) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Seen implements Store.
func (s *Redis) Seen(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("seen lookup %q: %w", key, err)
	}
	return n == 1, nil
}

// Mark implements Store.
func (s *Redis) Mark(ctx context.Context, key string) error {
	if err := s.client.Set(ctx, s.prefix+key, "1", s.ttl).Err(); err != nil {
		return fmt.Errorf("seen mark %q: %w", key, err)
	}
	return nil
}

// Close releases the client.
func (s *Redis) Close() error {
	return s.client.Close()
}

// Memory is an in-process Store.
type Memory struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{keys: make(map[string]struct{})}
}

// Seen implements Store.
func (m *Memory) Seen(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.keys[key]
	return ok, nil
}

// Mark implements Store.
func (m *Memory) Mark(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = struct{}{}
	return nil
}

// Len reports how many keys are marked.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}
