package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// Colors follow the Instagram gradient on a dark background.
var (
	igPurple  = lipgloss.Color("#833AB4")
	igPink    = lipgloss.Color("#E1306C")
	igOrange  = lipgloss.Color("#F77737")
	igYellow  = lipgloss.Color("#FCAF45")
	igBlue    = lipgloss.Color("#5BC0EB")
	mint      = lipgloss.Color("#3DDC97")
	alertRed  = lipgloss.Color("#ED4956")
	ink       = lipgloss.Color("#121212")
	inkRaised = lipgloss.Color("#1E1E24")
	muted     = lipgloss.Color("#A8A8A8")
	faint     = lipgloss.Color("#5C5C66")
)

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

var (
	screenStyle = lipgloss.NewStyle().Background(ink).Foreground(muted)
	bannerStyle = fg(igPink).Bold(true).Align(lipgloss.Center)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(igPurple).
			Background(inkRaised).
			Padding(0, 1)
	boxTitleStyle = lipgloss.NewStyle().Background(igPurple).Foreground(ink).Bold(true).Padding(0, 1)

	labelStyle     = fg(igBlue).Bold(true)
	valueStyle     = fg(igYellow)
	successStyle   = fg(mint).Bold(true)
	errorStyle     = fg(alertRed).Bold(true)
	warningStyle   = fg(igOrange).Bold(true)
	sparklineStyle = fg(mint)

	logTimeStyle = fg(faint)
	logTextStyle = fg(muted)
	helpStyle    = fg(faint).PaddingLeft(2)
)

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(igPurple).
		BorderBottom(true).
		Foreground(igBlue).
		Bold(true)
	s.Selected = s.Selected.Foreground(ink).Background(igPink)
	return s
}

// changeStyle colors a follower change by its sign
func changeStyle(change int64) lipgloss.Style {
	switch {
	case change > 0:
		return successStyle
	case change < 0:
		return errorStyle
	}
	return valueStyle
}
