package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"goingviral/pkg/metrics"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF10F0")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
)

// FormatCount abbreviates large counts, e.g. 12345 as 12.3K.
func FormatCount(n int64) string {
	abs := n
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case abs >= 10_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// Truncate shortens s to max runes, marking the cut with an ellipsis.
func Truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}

// PostRow returns the table cells of one post.
func PostRow(p metrics.Post, captionWidth int) []string {
	return []string{
		p.Timestamp.Format("2006-01-02"),
		p.Type,
		FormatCount(p.Metrics.Views),
		FormatCount(p.Metrics.Likes),
		FormatCount(p.Metrics.Comments),
		FormatCount(p.Metrics.Shares),
		FormatCount(p.Metrics.Saves),
		fmt.Sprintf("%.1f", p.Metrics.Engagement),
		Truncate(p.Caption, captionWidth),
	}
}

// PostColumns names the cells PostRow returns.
var PostColumns = []string{"Date", "Type", "Views", "Likes", "Comments", "Shares", "Saves", "Eng.", "Caption"}

// RenderPosts renders up to limit posts as a table. A limit of 0 or less
// renders them all.
func RenderPosts(posts []metrics.Post, limit int) string {
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	rows := make([][]string, 0, len(posts))
	for _, p := range posts {
		rows = append(rows, PostRow(p, 40))
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))).
		Headers(PostColumns...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col >= 2 && col <= 7:
				return numberStyle
			default:
				return cellStyle
			}
		})
	return t.String()
}

// RenderSummary renders the account totals on a few lines.
func RenderSummary(username string, s metrics.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s @%s\n", Cyan("Account"), username)
	fmt.Fprintf(&b, "  %s %d\n", Dim("posts"), s.Posts)
	fmt.Fprintf(&b, "  %s %s (avg %s)\n", Dim("views"), FormatCount(s.TotalViews), FormatCount(int64(s.AverageViews)))
	fmt.Fprintf(&b, "  %s %s  %s %s\n", Dim("likes"), FormatCount(s.TotalLikes), Dim("comments"), FormatCount(s.TotalComments))
	fmt.Fprintf(&b, "  %s %.2f\n", Dim("avg engagement"), s.AverageEngagement)
	if s.TopPost != nil {
		fmt.Fprintf(&b, "  %s %s • %s views • %s\n", Dim("top post"),
			s.TopPost.ID, FormatCount(s.TopPost.Metrics.Views), Truncate(s.TopPost.Caption, 50))
	}
	return b.String()
}
