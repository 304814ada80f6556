package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Message types for the dashboard

// DataLoadedMsg carries freshly loaded data
type DataLoadedMsg struct {
	Data *Data
}

// LoadErrorMsg reports a failed load
type LoadErrorMsg struct {
	Err error
}

// RunStatusMsg reports one status check of a live fetch
type RunStatusMsg RunState

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetColumns(postColumns(m.captionWidth()))
		m.table.SetHeight(m.tableHeight())
		m.refreshRows()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		if p, ok := pm.(progress.Model); ok {
			m.progress = p
		}
		return m, cmd

	case DataLoadedMsg:
		m.SetData(msg.Data)
		if msg.Data != nil {
			m.AddLogMessage("SUCCESS", fmt.Sprintf("Loaded %d posts for @%s (%s) in %s",
				len(msg.Data.Posts), msg.Data.Username, msg.Data.Source, m.now().Sub(m.loadStart).Round(time.Millisecond)))
		}
		return m, nil

	case LoadErrorMsg:
		m.loading = false
		m.run = nil
		m.loadErr = msg.Err
		m.AddLogMessage("ERROR", msg.Err.Error())
		return m, nil

	case RunStatusMsg:
		m.SetRunState(RunState(msg))
		m.AddLogMessage("INFO", fmt.Sprintf("@%s run %s: %s (%d/%d)",
			msg.Username, msg.RunID, msg.Status, msg.Attempt, msg.MaxAttempts))
		return m, m.progress.SetPercent(m.RunProgress())

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		return m, tea.Quit

	case "r", "R":
		if m.loading {
			return m, nil
		}
		m.loading = true
		m.loadErr = nil
		m.loadStart = m.now()
		m.AddLogMessage("INFO", "Refreshing data")
		return m, tea.Batch(m.spinner.Tick, m.loadCmd())

	case "s", "S":
		m.SetSort((m.sortBy + 1) % 3)
		m.AddLogMessage("INFO", "Sorted by "+m.sortBy.String())
		return m, nil

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.logMessages = nil
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) tableHeight() int {
	// header, overview, growth and logs take roughly 24 lines
	h := m.height - 24
	if h < 5 {
		h = 5
	}
	return h
}

// Helper functions for external use

// SendRunStatus creates a message for a run status check
func SendRunStatus(username, runID string, attempt, maxAttempts int, status string) tea.Msg {
	return RunStatusMsg{
		Username:    username,
		RunID:       runID,
		Attempt:     attempt,
		MaxAttempts: maxAttempts,
		Status:      status,
	}
}

// SendLog creates a log message
func SendLog(level, message string) tea.Msg {
	return LogMsg{Level: level, Message: message}
}
