package ui

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// ProgressDisplay prints fetch progress as compact console lines
type ProgressDisplay struct {
	mu      sync.Mutex
	out     io.Writer
	batch   *BatchTracker
	current map[string]string
	isDebug bool
}

var _ Reporter = (*ProgressDisplay)(nil)

// NewProgressDisplay creates a display for a batch of total fetches
func NewProgressDisplay(out io.Writer, total int, debug bool) *ProgressDisplay {
	return &ProgressDisplay{
		out:     out,
		batch:   NewBatchTracker(total),
		current: make(map[string]string),
		isDebug: debug,
	}
}

// RunStatus records one status check of username's run
func (p *ProgressDisplay) RunStatus(username, runID string, attempt, maxAttempts int, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current[username] = fmt.Sprintf("%s %d/%d", strings.ToLower(status), attempt, maxAttempts)
	if p.isDebug {
		fmt.Fprintf(p.out, "%s @%s run %s • %s • check %d/%d\n",
			Magenta("→"), username, runID, status, attempt, maxAttempts)
		return
	}
	p.printProgress()
}

// FetchDone records a finished fetch
func (p *ProgressDisplay) FetchDone(username string, posts int, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.current, username)
	p.batch.Succeed()
	p.clearLine()
	fmt.Fprintf(p.out, "%s @%s • %d posts • %s\n", Green("✓"), username, posts, FormatDuration(elapsed))
	p.printProgress()
}

// FetchFailed records a failed fetch
func (p *ProgressDisplay) FetchFailed(username string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.current, username)
	p.batch.Fail()
	p.clearLine()
	fmt.Fprintf(p.out, "%s @%s • %v\n", Red("✗"), username, err)
	p.printProgress()
}

func (p *ProgressDisplay) clearLine() {
	if !p.isDebug {
		fmt.Fprintf(p.out, "\r%s\r", strings.Repeat(" ", 100))
	}
}

// printProgress rewrites the progress line in place
func (p *ProgressDisplay) printProgress() {
	if p.isDebug || p.batch.Done() >= p.batch.Total {
		return
	}

	line := fmt.Sprintf("%s %s", Cyan("fetching"), p.batch.Bar(20))
	if eta := p.batch.ETA(); eta > 0 {
		line += " • eta " + FormatDuration(eta)
	}
	if len(p.current) > 0 {
		users := make([]string, 0, len(p.current))
		for user := range p.current {
			users = append(users, user)
		}
		sort.Strings(users)
		line += fmt.Sprintf(" • @%s %s", users[0], Dim(p.current[users[0]]))
		if len(users) > 1 {
			line += Dim(fmt.Sprintf(" (+%d)", len(users)-1))
		}
	}
	fmt.Fprintf(p.out, "\r%s\r%s", strings.Repeat(" ", 100), line)
}

// Complete prints the batch summary
func (p *ProgressDisplay) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.clearLine()
	fmt.Fprintf(p.out, "\n%s Fetched %d/%d accounts in %s\n",
		Green("✓"), p.batch.Completed, p.batch.Total, FormatDuration(p.batch.Elapsed()))
	if p.batch.Failed > 0 {
		fmt.Fprintf(p.out, "  %s %d fetches failed\n", Dim("•"), p.batch.Failed)
	}
}

// LogInfo prints an informational line
func (p *ProgressDisplay) LogInfo(format string, args ...interface{}) {
	p.log(Cyan("ℹ"), format, args...)
}

// LogWarning prints a warning line
func (p *ProgressDisplay) LogWarning(format string, args ...interface{}) {
	p.log(Yellow("⚠"), format, args...)
}

// LogError prints an error line
func (p *ProgressDisplay) LogError(format string, args ...interface{}) {
	p.log(Red("✗"), format, args...)
}

func (p *ProgressDisplay) log(icon, format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearLine()
	fmt.Fprintf(p.out, "%s %s\n", icon, fmt.Sprintf(format, args...))
	p.printProgress()
}
