package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "goingviral/pkg/errors"
	"goingviral/pkg/logger"
)

// Operation is one try of something that may fail transiently.
type Operation func(ctx context.Context) error

// Config says how often and how patiently Do retries.
type Config struct {
	// MaxAttempts counts the first try; 0 retries until ctx is done.
	MaxAttempts int
	Backoff     Backoff
	// RetryIf decides whether an error is worth another try. DefaultRetryIf
	// is used when nil.
	RetryIf func(error) bool
	Logger  logger.Logger
}

// DefaultConfig tries three times with DatasetBackoff.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     DatasetBackoff(),
		RetryIf:     DefaultRetryIf,
	}
}

// DefaultRetryIf retries upstream 5xx and 429 responses, network failures
// and untyped errors. Cancellation and every other typed error end the loop.
func DefaultRetryIf(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var e *errs.Error
	if !errors.As(err, &e) {
		return true
	}
	if e.Code != 0 {
		return errs.IsRetryableStatusCode(e.Code)
	}
	return errs.IsRetryable(e.Type)
}

// Do runs op until it succeeds, returns an error RetryIf rejects, or the
// attempt budget is spent. A spent budget wraps the last error.
func Do(ctx context.Context, op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	retryIf, backoff, log := cfg.RetryIf, cfg.Backoff, cfg.Logger
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}
	if backoff == nil {
		backoff = DatasetBackoff()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	for attempt := 1; ; attempt++ {
		err := op(ctx)
		switch {
		case err == nil:
			if attempt > 1 {
				log.DebugWithFields("succeeded after retry", map[string]interface{}{"attempt": attempt})
			}
			return nil
		case !retryIf(err):
			return err
		case cfg.MaxAttempts > 0 && attempt >= cfg.MaxAttempts:
			log.ErrorWithFields("giving up", map[string]interface{}{
				"attempts": attempt,
				"error":    err.Error(),
			})
			return fmt.Errorf("gave up after %d attempts: %w", attempt, err)
		}

		pause := backoff.Delay(attempt)
		log.WarnWithFields("retrying", map[string]interface{}{
			"attempt":      attempt,
			"max_attempts": cfg.MaxAttempts,
			"pause":        pause.Round(time.Millisecond).String(),
			"error":        err.Error(),
		})
		if err := Sleep(ctx, pause); err != nil {
			return err
		}
	}
}

// DoWithResult is Do for operations that produce a value.
func DoWithResult[T any](ctx context.Context, op func(ctx context.Context) (T, error), cfg *Config) (T, error) {
	var out T
	err := Do(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err == nil {
			out = v
		}
		return err
	}, cfg)
	return out, err
}
