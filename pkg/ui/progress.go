package ui

import (
	"fmt"
	"strings"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
)

// BatchTracker counts finished fetches of a batch
type BatchTracker struct {
	Total     int
	Completed int
	Failed    int
	StartTime time.Time
	now       func() time.Time
}

// NewBatchTracker creates a tracker for total fetches
func NewBatchTracker(total int) *BatchTracker {
	return &BatchTracker{Total: total, StartTime: time.Now(), now: time.Now}
}

// Succeed records a completed fetch
func (b *BatchTracker) Succeed() {
	b.Completed++
}

// Fail records a failed fetch
func (b *BatchTracker) Fail() {
	b.Failed++
}

// Done returns how many fetches have finished either way
func (b *BatchTracker) Done() int {
	return b.Completed + b.Failed
}

// Bar renders the share of finished fetches
func (b *BatchTracker) Bar(width int) string {
	filled := 0
	if b.Total > 0 {
		filled = b.Done() * width / b.Total
	}
	if filled > width {
		filled = width
	}
	bar := strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, width-filled)
	return fmt.Sprintf("[%s] %d/%d", bar, b.Done(), b.Total)
}

// Elapsed returns the time since tracking started
func (b *BatchTracker) Elapsed() time.Duration {
	return b.now().Sub(b.StartTime)
}

// ETA estimates the time left from the average fetch duration so far
func (b *BatchTracker) ETA() time.Duration {
	done := b.Done()
	if done == 0 || done >= b.Total {
		return 0
	}
	per := b.Elapsed() / time.Duration(done)
	return per * time.Duration(b.Total-done)
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
