package metrics

import (
	"sort"
	"time"
)

// Summary is the account overview shown above the post list.
type Summary struct {
	Posts             int     `json:"posts"`
	TotalViews        int64   `json:"totalViews"`
	TotalLikes        int64   `json:"totalLikes"`
	TotalComments     int64   `json:"totalComments"`
	TotalShares       int64   `json:"totalShares"`
	TotalSaves        int64   `json:"totalSaves"`
	AverageViews      float64 `json:"averageViews"`
	AverageEngagement float64 `json:"averageEngagement"`
	TopPost           *Post   `json:"topPost,omitempty"`
}

// Summarize totals posts. The top post has the most views, ties broken by
// engagement.
func Summarize(posts []Post) Summary {
	s := Summary{Posts: len(posts)}
	if len(posts) == 0 {
		return s
	}

	var engagement float64
	top := 0
	for i, p := range posts {
		m := p.Metrics
		s.TotalViews += m.Views
		s.TotalLikes += m.Likes
		s.TotalComments += m.Comments
		s.TotalShares += m.Shares
		s.TotalSaves += m.Saves
		engagement += m.Engagement

		best := posts[top].Metrics
		if m.Views > best.Views || (m.Views == best.Views && m.Engagement > best.Engagement) {
			top = i
		}
	}

	n := float64(len(posts))
	s.AverageViews = float64(s.TotalViews) / n
	s.AverageEngagement = engagement / n
	topPost := posts[top]
	s.TopPost = &topPost
	return s
}

// Point is one follower-count observation.
type Point struct {
	Date      time.Time `json:"date"`
	Followers int64     `json:"followers"`
}

// Delta is the change between two consecutive points.
type Delta struct {
	Date    time.Time `json:"date"`
	Change  int64     `json:"change"`
	Percent float64   `json:"percent"`
}

// Growth sorts points by date and returns the change at each point after
// the first. Percent is 0 when the previous count was 0.
func Growth(points []Point) []Delta {
	if len(points) < 2 {
		return nil
	}
	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	deltas := make([]Delta, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		d := Delta{Date: cur.Date, Change: cur.Followers - prev.Followers}
		if prev.Followers != 0 {
			d.Percent = float64(d.Change) / float64(prev.Followers) * 100
		}
		deltas = append(deltas, d)
	}
	return deltas
}

// SortByEngagement orders posts by engagement, highest first.
func SortByEngagement(posts []Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Metrics.Engagement > posts[j].Metrics.Engagement
	})
}
