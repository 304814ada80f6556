package ratelimit

import (
	"context"
	"testing"
	"time"
)

// fakeClock is advanced by hand
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestTokenBucket(t *testing.T) {
	clk := newFakeClock()
	tb := NewTokenBucket(60, time.Minute, 5)
	tb.now = clk.now
	tb.lastRefill = clk.now()

	// Test initial capacity
	for i := 0; i < 5; i++ {
		if !tb.Allow() {
			t.Errorf("Expected token %d to be available", i+1)
		}
	}

	// Test exhaustion
	if tb.Allow() {
		t.Error("Expected no more tokens to be available")
	}
	if d := tb.Delay(); d != time.Second {
		t.Errorf("Expected delay of 1s, got %v", d)
	}

	// One token per second
	clk.advance(time.Second)
	if !tb.Allow() {
		t.Error("Expected a token after one second")
	}
	if tb.Allow() {
		t.Error("Expected only one token after one second")
	}

	// Refill never exceeds capacity
	clk.advance(time.Hour)
	for i := 0; i < 5; i++ {
		tb.Allow()
	}
	if tb.Allow() {
		t.Error("Expected bucket to be capped at burst size")
	}

	// Test reset
	tb.Reset()
	if tb.tokens != tb.capacity {
		t.Error("Expected tokens to be reset to capacity")
	}
}

func TestTokenBucketDefaults(t *testing.T) {
	tb := NewTokenBucket(0, time.Second, 0)
	if tb.capacity != 1 {
		t.Errorf("Expected capacity 1, got %v", tb.capacity)
	}
}

func TestTokenBucketWaitHonorsContext(t *testing.T) {
	tb := NewTokenBucket(1, time.Hour, 1)
	if err := tb.Wait(context.Background()); err != nil {
		t.Fatalf("Expected first wait to succeed, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := tb.Wait(ctx); err != context.DeadlineExceeded {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestSlidingWindow(t *testing.T) {
	clk := newFakeClock()
	sw := NewSlidingWindow(3, time.Second)
	sw.now = clk.now

	// Test initial requests
	for i := 0; i < 3; i++ {
		if !sw.Allow() {
			t.Errorf("Expected request %d to be allowed", i+1)
		}
		clk.advance(100 * time.Millisecond)
	}

	// Test limit reached
	if sw.Allow() {
		t.Error("Expected request to be denied when limit is reached")
	}
	if d := sw.RetryAfter(); d != 700*time.Millisecond {
		t.Errorf("Expected retry after 700ms, got %v", d)
	}

	// Test window sliding
	clk.advance(700 * time.Millisecond)
	if !sw.Allow() {
		t.Error("Expected request to be allowed after window slides")
	}

	// Test reset
	sw.Reset()
	if len(sw.requests) != 0 {
		t.Error("Expected requests to be cleared after reset")
	}
}

func TestKeyedWindow(t *testing.T) {
	clk := newFakeClock()
	kw := NewKeyedWindow(2, time.Hour)
	kw.now = clk.now

	if !kw.Allow("a@example.com") || !kw.Allow("A@Example.com ") {
		t.Fatal("Expected first two requests to be allowed")
	}
	if kw.Allow("a@example.com") {
		t.Error("Expected third request for the same key to be denied")
	}
	if !kw.Allow("b@example.com") {
		t.Error("Expected other keys to be unaffected")
	}
	if d := kw.RetryAfter("a@example.com"); d != time.Hour {
		t.Errorf("Expected retry after 1h, got %v", d)
	}

	clk.advance(time.Hour)
	if n := kw.Prune(); n != 0 {
		t.Errorf("Expected all keys pruned, %d remain", n)
	}
	if !kw.Allow("a@example.com") {
		t.Error("Expected key to be allowed after the window passed")
	}
}
