package seen

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	ok, err := m.Seen(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Mark(ctx, "a1"))
	require.NoError(t, m.Mark(ctx, "a1"))
	ok, err = m.Seen(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, m.Len())
}

func TestRedisUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s := NewRedis("127.0.0.1:1", 0)
	defer s.Close()
	assert.Equal(t, DefaultTTL, s.ttl)

	assert.Error(t, s.Ping(ctx))
	_, err := s.Seen(ctx, "a1")
	assert.ErrorContains(t, err, "seen lookup")
	assert.ErrorContains(t, s.Mark(ctx, "a1"), "seen mark")
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("JOBCRAWL_TEST_REDIS")
	if addr == "" {
		t.Skip("JOBCRAWL_TEST_REDIS not set")
	}
	ctx := context.Background()
	s := NewRedis(addr, time.Minute)
	defer s.Close()
	require.NoError(t, s.Ping(ctx))

	key := "test-" + uuid.NewString()
	ok, err := s.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Mark(ctx, key))
	ok, err = s.Seen(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
}
