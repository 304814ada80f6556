package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow checks if a request is allowed under the current rate limit
	Allow() bool
	// Wait blocks until the rate limit allows another request or ctx ends
	Wait(ctx context.Context) error
	// Reset resets the rate limiter state
	Reset()
}

// clock is swapped out in tests
type clock func() time.Time

// TokenBucket implements a token bucket rate limiter. Tokens refill
// continuously at rate per period up to capacity.
type TokenBucket struct {
	capacity   float64
	tokens     float64
	perToken   time.Duration // time to earn one token
	lastRefill time.Time
	now        clock
	mu         sync.Mutex
}

// NewTokenBucket creates a bucket that allows rate events per period with
// bursts of up to burst events. A burst below 1 means rate.
func NewTokenBucket(rate int, period time.Duration, burst int) *TokenBucket {
	if rate < 1 {
		rate = 1
	}
	if burst < 1 {
		burst = rate
	}
	tb := &TokenBucket{
		capacity: float64(burst),
		tokens:   float64(burst),
		perToken: period / time.Duration(rate),
		now:      time.Now,
	}
	tb.lastRefill = tb.now()
	return tb
}

// Allow checks if a request can proceed
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for !tb.Allow() {
		timer := time.NewTimer(tb.Delay())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// Delay is how long until the next token is earned. It is 0 when a token
// is available now.
func (tb *TokenBucket) Delay() time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= 1 {
		return 0
	}
	return time.Duration((1 - tb.tokens) * float64(tb.perToken))
}

// Reset resets the token bucket to full capacity
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = tb.now()
}

// refill adds tokens based on elapsed time
func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefill)
	if elapsed <= 0 || tb.perToken <= 0 {
		return
	}
	tb.tokens += float64(elapsed) / float64(tb.perToken)
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now
}

// SlidingWindow implements a sliding window rate limiter
type SlidingWindow struct {
	windowSize  time.Duration
	maxRequests int
	requests    []time.Time
	now         clock
	mu          sync.Mutex
}

// NewSlidingWindow creates a new sliding window rate limiter
func NewSlidingWindow(maxRequests int, windowSize time.Duration) *SlidingWindow {
	return &SlidingWindow{
		windowSize:  windowSize,
		maxRequests: maxRequests,
		requests:    make([]time.Time, 0, maxRequests),
		now:         time.Now,
	}
}

// Allow checks if a request can proceed
func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	sw.cleanOldRequests(now)

	if len(sw.requests) < sw.maxRequests {
		sw.requests = append(sw.requests, now)
		return true
	}
	return false
}

// RetryAfter is how long until the oldest request leaves the window.
func (sw *SlidingWindow) RetryAfter() time.Duration {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	sw.cleanOldRequests(now)
	if len(sw.requests) < sw.maxRequests || len(sw.requests) == 0 {
		return 0
	}
	return sw.windowSize - now.Sub(sw.requests[0])
}

// Wait blocks until a request is allowed
func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for !sw.Allow() {
		d := sw.RetryAfter()
		if d <= 0 {
			d = 100 * time.Millisecond
		}
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// Reset clears all recorded requests
func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.requests = sw.requests[:0]
}

func (sw *SlidingWindow) idle(now time.Time) bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.cleanOldRequests(now)
	return len(sw.requests) == 0
}

// cleanOldRequests removes requests outside the sliding window
func (sw *SlidingWindow) cleanOldRequests(now time.Time) {
	cutoff := now.Add(-sw.windowSize)

	i := 0
	for i < len(sw.requests) && !sw.requests[i].After(cutoff) {
		i++
	}

	if i > 0 {
		copy(sw.requests, sw.requests[i:])
		sw.requests = sw.requests[:len(sw.requests)-i]
	}
}

// KeyedWindow keeps one sliding window per key, such as an email address.
// Keys are compared case-insensitively.
type KeyedWindow struct {
	maxRequests int
	windowSize  time.Duration
	windows     map[string]*SlidingWindow
	now         clock
	mu          sync.Mutex
}

// NewKeyedWindow creates a per-key limiter.
func NewKeyedWindow(maxRequests int, windowSize time.Duration) *KeyedWindow {
	return &KeyedWindow{
		maxRequests: maxRequests,
		windowSize:  windowSize,
		windows:     make(map[string]*SlidingWindow),
		now:         time.Now,
	}
}

func (kw *KeyedWindow) window(key string) *SlidingWindow {
	key = strings.ToLower(strings.TrimSpace(key))

	kw.mu.Lock()
	defer kw.mu.Unlock()

	w, ok := kw.windows[key]
	if !ok {
		w = NewSlidingWindow(kw.maxRequests, kw.windowSize)
		w.now = kw.now
		kw.windows[key] = w
	}
	return w
}

// Allow records a request for key if it is within the limit.
func (kw *KeyedWindow) Allow(key string) bool {
	return kw.window(key).Allow()
}

// RetryAfter reports how long key must wait.
func (kw *KeyedWindow) RetryAfter(key string) time.Duration {
	return kw.window(key).RetryAfter()
}

// Prune drops keys with no requests left in their window and returns how
// many remain.
func (kw *KeyedWindow) Prune() int {
	now := kw.now()

	kw.mu.Lock()
	defer kw.mu.Unlock()

	for key, w := range kw.windows {
		if w.idle(now) {
			delete(kw.windows, key)
		}
	}
	return len(kw.windows)
}
