package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:          attempts,
		InitialBackoff:       time.Millisecond,
		MaxBackoff:           2 * time.Millisecond,
		Multiplier:           2,
		RetryableStatusCodes: []int{503},
	}
}

func TestWithRetryEventuallySucceeds(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastConfig(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetryStopsOnNonRetryableStatus(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastConfig(5), func() error {
		calls++
		return NewHTTPError(404, "Not Found", "")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}

func TestWithRetryGivesUp(t *testing.T) {
	calls := 0
	base := NewHTTPError(503, "Service Unavailable", "")
	err := WithRetry(context.Background(), fastConfig(2), func() error {
		calls++
		return base
	})
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
	var he HTTPError
	if !errors.As(err, &he) || he.StatusCode != 503 {
		t.Errorf("expected wrapped 503, got %v", err)
	}
}

func TestWithRetryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := WithRetry(ctx, fastConfig(3), func() error {
		calls++
		return context.Canceled
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	cfg := Config{InitialBackoff: time.Second, MaxBackoff: 5 * time.Second, Multiplier: 2}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := Backoff(i, cfg); got != w {
			t.Errorf("Backoff(%d) = %v, want %v", i, got, w)
		}
	}
}

func TestBackoffJitter(t *testing.T) {
	cfg := Config{InitialBackoff: 4 * time.Second, MaxBackoff: time.Minute, Multiplier: 2, Jitter: 0.5}

	cfg.Rand = func() float64 { return 0 }
	if got := Backoff(0, cfg); got != 4*time.Second {
		t.Errorf("zero jitter draw: got %v", got)
	}

	cfg.Rand = func() float64 { return 1 }
	if got := Backoff(0, cfg); got != 2*time.Second {
		t.Errorf("full jitter draw: got %v", got)
	}

	cfg.Rand = nil
	if got := Backoff(1, cfg); got != 8*time.Second {
		t.Errorf("jitter without rand: got %v", got)
	}
}

func TestWithRetryHonoursRetryAfter(t *testing.T) {
	var waits []time.Duration
	cfg := fastConfig(3)
	cfg.MaxBackoff = 10 * time.Second
	cfg.RetryableStatusCodes = []int{429}
	cfg.Sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	calls := 0
	err := WithRetry(context.Background(), cfg, func() error {
		calls++
		if calls == 1 {
			e := NewHTTPError(429, "Too Many Requests", "")
			e.RetryAfter = 4 * time.Second
			return e
		}
		if calls == 2 {
			e := NewHTTPError(429, "Too Many Requests", "")
			e.RetryAfter = time.Minute
			return e
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(waits) != 2 || waits[0] != 4*time.Second || waits[1] != 10*time.Second {
		t.Errorf("unexpected waits %v", waits)
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)
	tests := map[string]time.Duration{
		"":                              0,
		"120":                           2 * time.Minute,
		"-5":                            0,
		"soon":                          0,
		"Sat, 15 Mar 2025 09:00:30 GMT": 30 * time.Second,
		"Sat, 15 Mar 2025 08:00:00 GMT": 0,
	}
	for in, want := range tests {
		if got := ParseRetryAfter(in, now); got != want {
			t.Errorf("ParseRetryAfter(%q) = %v, want %v", in, got, want)
		}
	}
}
