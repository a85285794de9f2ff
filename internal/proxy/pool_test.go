package proxy

import (
	"testing"
	"time"
)

func TestProxyPool(t *testing.T) {
	pool := NewProxyPool([]string{"http://p1:8080", "http://p2:8080", "http://p3:8080"})

	for _, want := range []string{"http://p1:8080", "http://p2:8080", "http://p3:8080", "http://p1:8080"} {
		if p := pool.GetNext(); p != want {
			t.Errorf("Expected %s, got %s", want, p)
		}
	}

	pool.MarkFailed("http://p2:8080")

	// Index is at p2, which is cooling down.
	if p := pool.GetNext(); p != "http://p3:8080" {
		t.Errorf("Expected p3 (skipping p2), got %s", p)
	}
	if p := pool.GetNext(); p != "http://p1:8080" {
		t.Errorf("Expected p1, got %s", p)
	}
	if p := pool.GetNext(); p != "http://p3:8080" {
		t.Errorf("Expected p3, got %s", p)
	}
	if n := pool.Healthy(); n != 2 {
		t.Errorf("Expected 2 healthy proxies, got %d", n)
	}

	pool.MarkHealthy("http://p2:8080")

	if p := pool.GetNext(); p != "http://p1:8080" {
		t.Errorf("Expected p1, got %s", p)
	}
	if p := pool.GetNext(); p != "http://p2:8080" {
		t.Errorf("Expected p2, got %s", p)
	}
}

func TestProxyPoolCooldownExpires(t *testing.T) {
	now := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)
	pool := NewProxyPool([]string{"http://p1:8080", "http://p2:8080"},
		WithCooldown(10*time.Minute),
		WithClock(func() time.Time { return now }),
	)

	pool.MarkFailed("http://p1:8080")
	if p := pool.GetNext(); p != "http://p2:8080" {
		t.Fatalf("Expected p2 while p1 cools down, got %s", p)
	}

	now = now.Add(11 * time.Minute)
	if p := pool.GetNext(); p != "http://p1:8080" {
		t.Errorf("Expected p1 after cooldown, got %s", p)
	}
}

func TestProxyPoolAllFailed(t *testing.T) {
	now := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)
	pool := NewProxyPool([]string{"http://p1:8080", "http://p2:8080"},
		WithClock(func() time.Time { return now }),
	)

	pool.MarkFailed("http://p2:8080")
	now = now.Add(time.Minute)
	pool.MarkFailed("http://p1:8080")

	if p := pool.GetNext(); p != "http://p2:8080" {
		t.Errorf("Expected the proxy that failed longest ago, got %s", p)
	}
	if n := pool.Healthy(); n != 0 {
		t.Errorf("Expected no healthy proxies, got %d", n)
	}
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"127.0.0.1:3128":          "http://127.0.0.1:3128",
		" socks5://10.0.0.2:1080": "socks5://10.0.0.2:1080",
		"http://proxy:8080":       "http://proxy:8080",
		"   ":                     "",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}

	pool := NewProxyPool([]string{"", "proxy:8080"})
	if pool.Len() != 1 {
		t.Errorf("Expected blank entries dropped, got %d proxies", pool.Len())
	}
}

func TestEmptyPool(t *testing.T) {
	if p := NewProxyPool(nil).GetNext(); p != "" {
		t.Errorf("Expected empty proxy, got %s", p)
	}
}
