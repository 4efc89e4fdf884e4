package http

import (
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	rl := newRateLimiter(2)
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	if !rl.allow(start) || !rl.allow(start.Add(time.Second)) {
		t.Fatalf("first two commands should pass")
	}
	if rl.allow(start.Add(2 * time.Second)) {
		t.Fatalf("third command in the window should be refused")
	}
	if !rl.allow(start.Add(time.Minute + time.Second)) {
		t.Fatalf("new window should reset the counter")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := newRateLimiter(0)
	now := time.Now()
	for range 1000 {
		if !rl.allow(now) {
			t.Fatalf("disabled limiter must allow everything")
		}
	}
}
