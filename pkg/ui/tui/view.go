package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"goingviral/pkg/ui"
)

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// View renders the entire dashboard
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, m.renderLogo())

	half := (m.width - 4) / 2
	sections = append(sections, lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderOverviewPanel(half),
		"  ",
		m.renderGrowthPanel(half),
	))

	sections = append(sections, m.renderPostsPanel())
	sections = append(sections, m.renderStatusLine())
	sections = append(sections, m.renderLogsPanel(m.width-2))

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help"))
	}

	return screenStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m Model) renderLogo() string {
	return bannerStyle.Width(m.width).Render("▲ AM I GOING VIRAL ▲")
}

func (m Model) renderOverviewPanel(width int) string {
	title := boxTitleStyle.Render(" ACCOUNT ")

	if m.data == nil {
		content := lipgloss.NewStyle().Foreground(muted).Render("No data loaded")
		return boxStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
	}

	s := m.summary
	stats := []string{
		fmt.Sprintf("%s %s %s", labelStyle.Render("Account:"),
			valueStyle.Render("@"+m.data.Username),
			lipgloss.NewStyle().Foreground(muted).Render("("+m.data.Source+")")),
	}
	if latest, change, ok := m.Followers(); ok {
		stats = append(stats, fmt.Sprintf("%s %s %s", labelStyle.Render("Followers:"),
			valueStyle.Render(ui.FormatCount(latest)),
			changeStyle(change).Render(fmt.Sprintf("%+d", change))))
	}
	stats = append(stats,
		fmt.Sprintf("%s %s", labelStyle.Render("Posts:"), valueStyle.Render(fmt.Sprintf("%d", s.Posts))),
		fmt.Sprintf("%s %s", labelStyle.Render("Avg views:"), valueStyle.Render(ui.FormatCount(int64(s.AverageViews)))),
		fmt.Sprintf("%s %s", labelStyle.Render("Avg engagement:"), valueStyle.Render(fmt.Sprintf("%.2f", s.AverageEngagement))),
	)
	if s.TopPost != nil {
		stats = append(stats, fmt.Sprintf("%s %s views • %s", labelStyle.Render("Top post:"),
			valueStyle.Render(ui.FormatCount(s.TopPost.Metrics.Views)),
			ui.Truncate(s.TopPost.Caption, width-30)))
	}

	return boxStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, stats...)),
	)
}

func (m Model) renderGrowthPanel(width int) string {
	title := boxTitleStyle.Render(" FOLLOWER GROWTH ")

	if m.data == nil || len(m.data.Growth) < 2 {
		content := lipgloss.NewStyle().Foreground(muted).Render("Not enough history")
		return boxStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
	}

	values := make([]int64, len(m.data.Growth))
	for i, p := range m.data.Growth {
		values[i] = p.Followers
	}

	var best, worst int64
	for i, d := range m.deltas {
		if i == 0 || d.Change > best {
			best = d.Change
		}
		if i == 0 || d.Change < worst {
			worst = d.Change
		}
	}

	first, last := m.data.Growth[0], m.data.Growth[len(m.data.Growth)-1]
	lines := []string{
		sparklineStyle.Render(Sparkline(values, width-6)),
		fmt.Sprintf("%s %s → %s", labelStyle.Render("Range:"),
			first.Date.Format("Jan 2"), last.Date.Format("Jan 2")),
		fmt.Sprintf("%s %s  %s %s", labelStyle.Render("Best day:"), changeStyle(best).Render(fmt.Sprintf("%+d", best)),
			labelStyle.Render("Worst day:"), changeStyle(worst).Render(fmt.Sprintf("%+d", worst))),
	}

	return boxStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(lines, "\n")),
	)
}

func (m Model) renderPostsPanel() string {
	title := boxTitleStyle.Render(fmt.Sprintf(" POSTS • by %s ", m.sortBy))
	return boxStyle.Width(m.width - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, m.table.View()),
	)
}

func (m Model) renderStatusLine() string {
	switch {
	case m.loading && m.run != nil:
		return fmt.Sprintf(" %s @%s run %s • %s • check %d/%d %s",
			m.spinner.View(), m.run.Username, m.run.RunID, m.run.Status,
			m.run.Attempt, m.run.MaxAttempts, m.progress.ViewAs(m.RunProgress()))
	case m.loading:
		return fmt.Sprintf(" %s %s %s", m.spinner.View(), warningStyle.Render("Loading"),
			formatDuration(m.now().Sub(m.loadStart)))
	case m.loadErr != nil:
		return " " + errorStyle.Render("✗ "+m.loadErr.Error())
	case m.data != nil:
		return " " + successStyle.Render("✓") + " " + logTextStyle.Render("Updated "+m.data.FetchedAt.Format("15:04:05"))
	}
	return ""
}

func (m Model) renderLogsPanel(width int) string {
	title := boxTitleStyle.Render(" LOGS ")

	start := len(m.logMessages) - 5
	if start < 0 {
		start = 0
	}

	var logs []string
	for _, log := range m.logMessages[start:] {
		timestamp := logTimeStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))
		message := logTextStyle.Render(ui.Truncate(log.Message, width-25))
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, message))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(muted).Render("No logs yet...")
	}

	return boxStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

func (m Model) renderHelp() string {
	help := `
  Keys:
    ↑/↓ j/k  - Move through posts
    s        - Cycle sort (date, views, engagement)
    r        - Refresh data
    ctrl+l   - Clear logs
    q        - Quit
    ?        - Toggle this help

  Follower change:
    ` + successStyle.Render("Green") + `    - Gained
    ` + errorStyle.Render("Red") + `      - Lost
`
	return boxStyle.Width(m.width - 2).Render(help)
}

// Sparkline draws values as a row of block characters, sampling down to
// width when there are more values than columns.
func Sparkline(values []int64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}
	if len(values) > width {
		sampled := make([]int64, width)
		for i := range sampled {
			sampled[i] = values[i*len(values)/width]
		}
		sampled[width-1] = values[len(values)-1]
		values = sampled
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	var b strings.Builder
	top := len(sparkLevels) - 1
	for _, v := range values {
		level := 0
		if hi > lo {
			level = int((v - lo) * int64(top) / (hi - lo))
		}
		b.WriteRune(sparkLevels[level])
	}
	return b.String()
}

// formatDuration formats a duration as mm:ss or hh:mm:ss
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
