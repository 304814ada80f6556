package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"goingviral/pkg/mockdata"
	"goingviral/pkg/ui"
)

// TUI represents the terminal dashboard
type TUI struct {
	program *tea.Program
	model   *Model
}

var _ ui.Reporter = (*TUI)(nil)

// New creates a dashboard that loads its data with loader. The program
// exits when ctx is cancelled.
func New(ctx context.Context, loader Loader) *TUI {
	model := NewModel(ctx, loader)
	program := tea.NewProgram(&model, tea.WithAltScreen(), tea.WithContext(ctx))

	return &TUI{
		program: program,
		model:   &model,
	}
}

// Start runs the dashboard until the user quits
func (t *TUI) Start() error {
	_, err := t.program.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// Stop stops the dashboard gracefully
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the dashboard
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// RunStatus shows a status check of a live fetch
func (t *TUI) RunStatus(username, runID string, attempt, maxAttempts int, status string) {
	t.Send(SendRunStatus(username, runID, attempt, maxAttempts, status))
}

// FetchDone logs a finished fetch
func (t *TUI) FetchDone(username string, posts int, elapsed time.Duration) {
	t.Log("SUCCESS", "@%s • %d posts • %s", username, posts, ui.FormatDuration(elapsed))
}

// FetchFailed logs a failed fetch
func (t *TUI) FetchFailed(username string, err error) {
	t.Log("ERROR", "@%s • %v", username, err)
}

// Log sends a log message to the dashboard
func (t *TUI) Log(level, format string, args ...interface{}) {
	t.Send(SendLog(level, fmt.Sprintf(format, args...)))
}

// LogInfo logs an info message
func (t *TUI) LogInfo(format string, args ...interface{}) {
	t.Log("INFO", format, args...)
}

// LogWarning logs a warning message
func (t *TUI) LogWarning(format string, args ...interface{}) {
	t.Log("WARN", format, args...)
}

// LogError logs an error message
func (t *TUI) LogError(format string, args ...interface{}) {
	t.Log("ERROR", format, args...)
}

// DemoLoader serves sample data from gen. Every refresh draws new numbers.
func DemoLoader(gen *mockdata.Generator, posts, days int) Loader {
	return func(ctx context.Context) (*Data, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &Data{
			Username:  mockdata.DemoUsername,
			Source:    "demo",
			Posts:     gen.Posts(posts),
			Growth:    gen.FollowerGrowth(days),
			FetchedAt: time.Now(),
		}, nil
	}
}
