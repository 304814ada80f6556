package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	errs "goingviral/pkg/errors"
)

func TestExponentialDelay(t *testing.T) {
	b := &Exponential{Initial: 100 * time.Millisecond, Cap: time.Second, Factor: 2}

	tests := []struct {
		retry int
		want  time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{5, time.Second},
	}
	for _, tt := range tests {
		if got := b.Delay(tt.retry); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.retry, got, tt.want)
		}
	}
}

func TestExponentialJitter(t *testing.T) {
	for _, tt := range []struct {
		r    float64
		want time.Duration
	}{
		{0, 140 * time.Millisecond},
		{0.5, 200 * time.Millisecond},
		{1, 260 * time.Millisecond},
	} {
		b := &Exponential{Initial: 100 * time.Millisecond, Cap: time.Second, Factor: 2, Jitter: 0.3,
			Rand: func() float64 { return tt.r }}
		got := b.Delay(2)
		if diff := got - tt.want; diff < -time.Microsecond || diff > time.Microsecond {
			t.Errorf("Delay with rand %v = %v, want %v", tt.r, got, tt.want)
		}
	}
}

func TestDatasetBackoff(t *testing.T) {
	b := DatasetBackoff()
	b.Jitter = 0
	if b.Delay(1) != time.Second || b.Delay(3) != 4*time.Second || b.Delay(10) != 10*time.Second {
		t.Errorf("unexpected schedule %v %v %v", b.Delay(1), b.Delay(3), b.Delay(10))
	}
}

func TestRetryWithSuccess(t *testing.T) {
	attempts := 0
	op := func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}

	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     Constant(10 * time.Millisecond),
		RetryIf:     func(err error) bool { return true },
	}

	if err := Do(context.Background(), op, cfg); err != nil {
		t.Errorf("Expected success after retries, got error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetryWithMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	persistent := errors.New("persistent error")
	op := func(ctx context.Context) error {
		attempts++
		return persistent
	}

	cfg := &Config{
		MaxAttempts: 3,
		Backoff:     Constant(10 * time.Millisecond),
		RetryIf:     func(err error) bool { return true },
	}

	err := Do(context.Background(), op, cfg)
	if !errors.Is(err, persistent) {
		t.Errorf("Expected wrapped persistent error, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetryWithNonRetryableError(t *testing.T) {
	attempts := 0
	notFound := errs.DatasetFetch(404, "dataset not found", nil)

	op := func(ctx context.Context) error {
		attempts++
		return notFound
	}

	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     Constant(10 * time.Millisecond),
		RetryIf:     DefaultRetryIf,
	}

	err := Do(context.Background(), op, cfg)
	if err != notFound {
		t.Errorf("Expected not found error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestDefaultRetryIf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"server error", errs.DatasetFetch(503, "", nil), true},
		{"rate limited", errs.DatasetFetch(429, "", nil), true},
		{"network", errs.Network("reset", errors.New("eof")), true},
		{"validation", errs.Validation("Username is required"), false},
		{"cancelled", context.Canceled, false},
		{"plain", errors.New("mystery"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultRetryIf(tt.err); got != tt.want {
				t.Errorf("DefaultRetryIf(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryWithContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	op := func(ctx context.Context) error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	}

	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     Constant(100 * time.Millisecond),
		RetryIf:     func(err error) bool { return true },
	}

	err := Do(ctx, op, cfg)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts before cancellation, got %d", attempts)
	}
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	op := func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 2 {
			return "", errors.New("temporary error")
		}
		return "success", nil
	}

	cfg := &Config{
		MaxAttempts: 3,
		Backoff:     Constant(10 * time.Millisecond),
		RetryIf:     func(err error) bool { return true },
	}

	result, err := DoWithResult(context.Background(), op, cfg)
	if err != nil {
		t.Errorf("Expected success, got error: %v", err)
	}
	if result != "success" {
		t.Errorf("Expected 'success', got '%s'", result)
	}
}

func TestSleep(t *testing.T) {
	if err := Sleep(context.Background(), 5*time.Millisecond); err != nil {
		t.Errorf("Sleep returned %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := Sleep(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Sleep ignored cancellation")
	}
}
