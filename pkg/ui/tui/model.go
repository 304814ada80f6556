package tui

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"goingviral/pkg/metrics"
	"goingviral/pkg/ui"
)

// Data is everything the dashboard shows for one account.
type Data struct {
	Username  string
	Source    string
	Posts     []metrics.Post
	Growth    []metrics.Point
	FetchedAt time.Time
}

// Loader produces the dashboard data. It runs off the UI goroutine and is
// called again on refresh.
type Loader func(ctx context.Context) (*Data, error)

// SortMode orders the post table
type SortMode int

const (
	SortByDate SortMode = iota
	SortByViews
	SortByEngagement
)

func (s SortMode) String() string {
	switch s {
	case SortByViews:
		return "views"
	case SortByEngagement:
		return "engagement"
	default:
		return "date"
	}
}

// RunState is the last reported status of a live fetch
type RunState struct {
	Username    string
	RunID       string
	Attempt     int
	MaxAttempts int
	Status      string
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// Model represents the dashboard state
type Model struct {
	// UI components
	spinner  spinner.Model
	table    table.Model
	progress progress.Model

	// Data
	ctx     context.Context
	loader  Loader
	data    *Data
	summary metrics.Summary
	deltas  []metrics.Delta
	sortBy  SortMode

	// Fetch state
	loading   bool
	loadErr   error
	run       *RunState
	loadStart time.Time

	// UI state
	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int
	now            func() time.Time
}

// NewModel creates a dashboard that loads its data with loader
func NewModel(ctx context.Context, loader Loader) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(igBlue)

	t := table.New(
		table.WithColumns(postColumns(40)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	t.SetStyles(tableStyles())

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 30

	if ctx == nil {
		ctx = context.Background()
	}

	return Model{
		spinner:        s,
		table:          t,
		progress:       p,
		ctx:            ctx,
		loader:         loader,
		loading:        true,
		maxLogMessages: 50,
		now:            time.Now,
	}
}

// Init starts the spinner and the first load
func (m *Model) Init() tea.Cmd {
	m.loadStart = m.now()
	return tea.Batch(m.spinner.Tick, m.loadCmd())
}

func (m *Model) loadCmd() tea.Cmd {
	loader, ctx := m.loader, m.ctx
	return func() tea.Msg {
		if loader == nil {
			return LoadErrorMsg{Err: errors.New("no data source")}
		}
		data, err := loader(ctx)
		if err != nil {
			return LoadErrorMsg{Err: err}
		}
		return DataLoadedMsg{Data: data}
	}
}

// SetData replaces the shown data and rebuilds the derived views
func (m *Model) SetData(d *Data) {
	m.data = d
	m.loading = false
	m.loadErr = nil
	m.run = nil
	if d == nil {
		m.summary = metrics.Summary{}
		m.deltas = nil
		m.table.SetRows(nil)
		return
	}
	m.summary = metrics.Summarize(d.Posts)
	m.deltas = metrics.Growth(d.Growth)
	m.refreshRows()
}

// SetSort changes the post order
func (m *Model) SetSort(mode SortMode) {
	m.sortBy = mode
	m.refreshRows()
}

// sortedPosts returns the posts in the current order without touching Data
func (m *Model) sortedPosts() []metrics.Post {
	if m.data == nil {
		return nil
	}
	posts := make([]metrics.Post, len(m.data.Posts))
	copy(posts, m.data.Posts)

	switch m.sortBy {
	case SortByViews:
		sort.SliceStable(posts, func(i, j int) bool { return posts[i].Metrics.Views > posts[j].Metrics.Views })
	case SortByEngagement:
		metrics.SortByEngagement(posts)
	default:
		sort.SliceStable(posts, func(i, j int) bool { return posts[i].Timestamp.After(posts[j].Timestamp) })
	}
	return posts
}

func (m *Model) refreshRows() {
	posts := m.sortedPosts()
	rows := make([]table.Row, 0, len(posts))
	for _, p := range posts {
		rows = append(rows, table.Row(ui.PostRow(p, m.captionWidth())))
	}
	m.table.SetRows(rows)
}

func (m *Model) captionWidth() int {
	w := m.width - 90
	if w < 20 {
		w = 20
	}
	if w > 80 {
		w = 80
	}
	return w
}

// SetRunState records a status check of a live fetch
func (m *Model) SetRunState(s RunState) {
	m.run = &s
}

// RunProgress returns the share of the poll budget used so far
func (m *Model) RunProgress() float64 {
	if m.run == nil || m.run.MaxAttempts <= 0 {
		return 0
	}
	p := float64(m.run.Attempt) / float64(m.run.MaxAttempts)
	if p > 1 {
		p = 1
	}
	return p
}

// Followers returns the latest follower count and its change over the
// loaded history
func (m *Model) Followers() (latest int64, change int64, ok bool) {
	if m.data == nil || len(m.data.Growth) == 0 {
		return 0, 0, false
	}
	points := m.data.Growth
	latest = points[len(points)-1].Followers
	change = latest - points[0].Followers
	return latest, change, true
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	color := muted
	switch level {
	case "ERROR":
		color = alertRed
	case "WARN":
		color = igOrange
	case "SUCCESS":
		color = mint
	case "INFO":
		color = igBlue
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    m.now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

func postColumns(captionWidth int) []table.Column {
	widths := []int{10, 8, 7, 7, 8, 6, 6, 5, captionWidth}
	cols := make([]table.Column, len(ui.PostColumns))
	for i, title := range ui.PostColumns {
		cols[i] = table.Column{Title: title, Width: widths[i]}
	}
	return cols
}
