// Package runctx carries the state scoped to one extraction run: its ID,
// start time, clock and random source. Nothing here is package-global, so
// concurrent runs (tests, the watch scheduler) never share state.
package runctx

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type key int

const runKey key = 0

// Run is the state of one extraction run.
type Run struct {
	ID        string
	StartedAt time.Time
	Clock     Clock
	Logger    zerolog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Run.
type Option func(*Run)

// WithSeed makes the random source deterministic.
func WithSeed(seed int64) Option {
	return func(r *Run) { r.rng = rand.New(rand.NewSource(seed)) }
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(r *Run) { r.Clock = c }
}

// WithID sets the run ID instead of generating one.
func WithID(id string) Option {
	return func(r *Run) { r.ID = id }
}

// WithLogger sets the base logger; the run ID is added as a field.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Run) { r.Logger = l }
}

// New creates a run with a fresh UUID, the wall clock and a time-seeded RNG.
func New(opts ...Option) *Run {
	r := &Run{
		ID:     uuid.NewString(),
		Clock:  RealClock{},
		Logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.rng == nil {
		r.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	r.StartedAt = r.Clock.Now()
	r.Logger = r.Logger.With().Str("run_id", r.ID).Logger()
	return r
}

// Float64 returns a pseudo-random number in [0, 1).
func (r *Run) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

// Between returns a random duration in [min, max].
func (r *Run) Between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(r.Float64()*float64(max-min))
}

// Pause sleeps for a random duration in [min, max], returning early with the
// context error when ctx is done.
func (r *Run) Pause(ctx context.Context, min, max time.Duration) error {
	return r.Clock.Sleep(ctx, r.Between(min, max))
}

// Now returns the current time from the run clock.
func (r *Run) Now() time.Time { return r.Clock.Now() }

// Elapsed returns the time since the run started.
func (r *Run) Elapsed() time.Duration { return r.Clock.Now().Sub(r.StartedAt) }

// NewContext returns a copy of ctx carrying r.
func NewContext(ctx context.Context, r *Run) context.Context {
	return context.WithValue(ctx, runKey, r)
}

// FromContext returns the run carried by ctx, or a fresh one.
func FromContext(ctx context.Context) *Run {
	if r, ok := ctx.Value(runKey).(*Run); ok {
		return r
	}
	return New()
}

// RunError wraps an error with the ID of the run that produced it.
type RunError struct {
	RunID string
	Err   error
}

// Error implements the error interface
func (e *RunError) Error() string {
	return fmt.Sprintf("[%s] %v", e.RunID, e.Err)
}

// Unwrap returns the underlying error
func (e *RunError) Unwrap() error {
	return e.Err
}

// Wrap tags err with the run ID; nil stays nil.
func (r *Run) Wrap(err error) error {
	if err == nil {
		return nil
	}
	return &RunError{RunID: r.ID, Err: err}
}
