package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"goingviral/pkg/logger"
)

var (
	// ErrTerminalState is returned when a check reports a final, unsuccessful state.
	ErrTerminalState = errors.New("terminal state reached")
	// ErrAttemptsExhausted is returned when MaxAttempts checks finish without a final state.
	ErrAttemptsExhausted = errors.New("poll attempts exhausted")
)

// Outcome classifies one observation of a long-running job.
type Outcome int

const (
	// Pending means check again after the interval.
	Pending Outcome = iota
	// Succeeded stops polling and returns the observation.
	Succeeded
	// Terminal stops polling with ErrTerminalState.
	Terminal
)

// PollConfig holds the fixed-interval polling settings
type PollConfig struct {
	// Interval is the fixed wait between checks
	Interval time.Duration
	// MaxAttempts bounds the number of checks; must be positive
	MaxAttempts int
	// TolerateErrors makes failed checks count against the budget instead
	// of ending the poll
	TolerateErrors bool
	// OnAttempt is called after every check
	OnAttempt func(attempt int, err error)
	Logger    logger.Logger
}

// Poll runs check until classify reports Succeeded or Terminal, the attempt
// budget runs out, or ctx is done. There is no wait after the final check.
// The last observation is returned alongside ErrTerminalState so callers
// can report the state that ended the poll.
func Poll[T any](ctx context.Context, cfg PollConfig, check func(ctx context.Context) (T, error), classify func(T) Outcome) (T, error) {
	var last T
	if cfg.MaxAttempts <= 0 {
		return last, fmt.Errorf("poll: max attempts must be positive, got %d", cfg.MaxAttempts)
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return last, err
		}

		v, err := check(ctx)
		if cfg.OnAttempt != nil {
			cfg.OnAttempt(attempt, err)
		}

		if err != nil {
			// A cancelled caller is never a transient failure.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return last, ctxErr
			}
			if !cfg.TolerateErrors {
				return last, err
			}
			log.WarnWithFields("poll check failed, continuing", map[string]interface{}{
				"attempt":      attempt,
				"max_attempts": cfg.MaxAttempts,
				"error":        err.Error(),
			})
		} else {
			last = v
			switch classify(v) {
			case Succeeded:
				return v, nil
			case Terminal:
				return v, ErrTerminalState
			}
		}

		if attempt == cfg.MaxAttempts {
			break
		}
		if err := Sleep(ctx, cfg.Interval); err != nil {
			return last, err
		}
	}

	return last, ErrAttemptsExhausted
}
