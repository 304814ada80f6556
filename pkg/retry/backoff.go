package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Backoff picks the pause before retry number n (1 for the first retry).
type Backoff interface {
	Delay(n int) time.Duration
}

// Exponential grows the pause by Factor per retry up to Cap. Jitter spreads
// each pause by up to that fraction in either direction.
type Exponential struct {
	Initial time.Duration
	Cap     time.Duration
	Factor  float64
	Jitter  float64
	// Rand returns a value in [0,1); math/rand is used when nil.
	Rand func() float64
}

// DatasetBackoff is the pause schedule for dataset downloads: 1s, 2s, 4s and
// so on, never more than 10s.
func DatasetBackoff() *Exponential {
	return &Exponential{
		Initial: time.Second,
		Cap:     10 * time.Second,
		Factor:  2,
		Jitter:  0.1,
	}
}

// Delay implements Backoff
func (e *Exponential) Delay(n int) time.Duration {
	if n < 1 {
		return 0
	}
	factor := e.Factor
	if factor < 1 {
		factor = 1
	}

	d := float64(e.Initial) * math.Pow(factor, float64(n-1))
	if e.Cap > 0 {
		d = math.Min(d, float64(e.Cap))
	}
	if e.Jitter > 0 {
		r := rand.Float64
		if e.Rand != nil {
			r = e.Rand
		}
		d *= 1 + e.Jitter*(2*r()-1)
	}
	return time.Duration(math.Max(d, 0))
}

// Constant pauses for the same duration before every retry.
type Constant time.Duration

// Delay implements Backoff
func (c Constant) Delay(n int) time.Duration {
	if n < 1 {
		return 0
	}
	return time.Duration(c)
}

// Sleep pauses for d, returning early with ctx's error if it is done first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
