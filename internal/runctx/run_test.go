package runctx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGeneratesUUID(t *testing.T) {
	r := New()
	_, err := uuid.Parse(r.ID)
	require.NoError(t, err)
	assert.NotEqual(t, r.ID, New().ID)
}

func TestSeededRunsAreReproducible(t *testing.T) {
	a := New(WithSeed(7))
	b := New(WithSeed(7))
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Between(time.Second, 2*time.Second), b.Between(time.Second, 2*time.Second))
	}
}

func TestBetweenStaysInRange(t *testing.T) {
	r := New(WithSeed(1))
	for i := 0; i < 1000; i++ {
		d := r.Between(500*time.Millisecond, 1500*time.Millisecond)
		assert.GreaterOrEqual(t, d, 500*time.Millisecond)
		assert.LessOrEqual(t, d, 1500*time.Millisecond)
	}
	assert.Equal(t, time.Second, r.Between(time.Second, time.Second))
}

func TestPauseUsesClock(t *testing.T) {
	start := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)
	r := New(WithClock(clock), WithSeed(3))

	require.NoError(t, r.Pause(context.Background(), 3*time.Second, 5*time.Second))
	sleeps := clock.Sleeps()
	require.Len(t, sleeps, 1)
	assert.Equal(t, sleeps[0], r.Elapsed())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Pause(ctx, time.Second, time.Second), context.Canceled)
}

func TestRealClockSleepCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RealClock{}.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestContextRoundTrip(t *testing.T) {
	r := New(WithID("run-1"))
	got := FromContext(NewContext(context.Background(), r))
	assert.Same(t, r, got)
	assert.NotEqual(t, "run-1", FromContext(context.Background()).ID)
}

func TestWrap(t *testing.T) {
	r := New(WithID("abc"))
	assert.NoError(t, r.Wrap(nil))

	base := errors.New("boom")
	err := r.Wrap(base)
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "[abc] boom", err.Error())
}
