package web

import (
	"testing"
	"time"
)

func TestRateLimiter_WindowResets(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("1.2.3.4") || !rl.Allow("1.2.3.4") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("1.2.3.4") {
		t.Error("third request should be limited")
	}
	if !rl.Allow("5.6.7.8") {
		t.Error("other clients have their own bucket")
	}

	now = now.Add(2 * time.Minute)
	if !rl.Allow("1.2.3.4") {
		t.Error("bucket should refill after the window")
	}
}

func TestRateLimiter_EvictsStaleBuckets(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(5, time.Minute)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(10 * time.Minute)
	rl.Allow("b")

	if _, ok := rl.buckets["a"]; ok {
		t.Error("stale bucket should be evicted")
	}
}
