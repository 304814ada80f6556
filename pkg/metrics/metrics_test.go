package metrics

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func fixedOpts() Options {
	return Options{
		Now:   func() time.Time { return fixedNow },
		NewID: func() string { return "generated" },
	}
}

func TestTransformFullRecord(t *testing.T) {
	raw := []RawPost{{
		ID:             "p1",
		OwnerUsername:  "natgeo",
		DisplayURL:     "https://cdn/x.jpg",
		Caption:        "hello",
		Timestamp:      "2024-04-30T10:00:00.000Z",
		Type:           "Video",
		LikesCount:     f(150),
		CommentsCount:  f(50),
		VideoViewCount: f(1000),
		SharesCount:    f(7),
		SavesCount:     f(9),
	}}

	posts := Transform(raw, fixedOpts())
	require.Len(t, posts, 1)
	p := posts[0]
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "natgeo", p.Username)
	assert.Equal(t, "https://cdn/x.jpg", p.Thumbnail)
	assert.Equal(t, "hello", p.Caption)
	assert.Equal(t, time.Date(2024, 4, 30, 10, 0, 0, 0, time.UTC), p.Timestamp)
	assert.Equal(t, TypeVideo, p.Type)
	assert.Equal(t, int64(1000), p.Metrics.Views)
	assert.Equal(t, int64(150), p.Metrics.Likes)
	assert.Equal(t, int64(50), p.Metrics.Comments)
	assert.Equal(t, int64(7), p.Metrics.Shares)
	assert.Equal(t, int64(9), p.Metrics.Saves)
	assert.InDelta(t, 20.0, p.Metrics.Engagement, 1e-9)
	assert.Zero(t, p.Metrics.FollowsFromPost)
	assert.Zero(t, p.Metrics.AverageWatchPercentage)
}

func TestTransformDefaults(t *testing.T) {
	posts := Transform([]RawPost{{}}, fixedOpts())
	require.Len(t, posts, 1)
	p := posts[0]
	assert.Equal(t, "generated", p.ID)
	assert.Equal(t, "", p.Caption)
	assert.Equal(t, "", p.Thumbnail)
	assert.Equal(t, fixedNow, p.Timestamp)
	assert.Equal(t, Metrics{}, p.Metrics)
}

func TestTransformPhotoWithoutViews(t *testing.T) {
	// views default to 0, so engagement divides by 1
	posts := Transform([]RawPost{{ID: "x", LikesCount: f(3), CommentsCount: f(2)}}, fixedOpts())
	assert.InDelta(t, 500.0, posts[0].Metrics.Engagement, 1e-9)
}

func TestTransformFallbacks(t *testing.T) {
	posts := Transform([]RawPost{{
		ShortCode:      "Cabc",
		PreviewURL:     "https://cdn/preview.jpg",
		VideoPlayCount: f(400),
		LikesCount:     f(-1),
		Timestamp:      "not a date",
	}}, fixedOpts())
	p := posts[0]
	assert.Equal(t, "Cabc", p.ID)
	assert.Equal(t, "https://cdn/preview.jpg", p.Thumbnail)
	assert.Equal(t, int64(400), p.Metrics.Views)
	assert.Zero(t, p.Metrics.Likes)
	assert.Equal(t, fixedNow, p.Timestamp)
}

func TestTransformClampsOversizedCounts(t *testing.T) {
	posts := Transform([]RawPost{{ID: "x", LikesCount: f(1e20), CommentsCount: f(5), VideoViewCount: f(math.Inf(1))}}, fixedOpts())
	p := posts[0]
	assert.Equal(t, int64(math.MaxInt64), p.Metrics.Likes)
	assert.Equal(t, int64(math.MaxInt64), p.Metrics.Views)
	assert.Equal(t, int64(5), p.Metrics.Comments)
	assert.Greater(t, p.Metrics.Engagement, 0.0)
}

func TestTransformGeneratedIDFormat(t *testing.T) {
	opts := Options{Now: func() time.Time { return fixedNow }}
	posts := Transform([]RawPost{{}, {}}, opts)
	assert.Regexp(t, `^1714564800000-[0-9a-f]{8}$`, posts[0].ID)
	assert.NotEqual(t, posts[0].ID, posts[1].ID)
}

func TestTransformIsDeterministic(t *testing.T) {
	raw := []RawPost{
		{ID: "a", LikesCount: f(10), VideoViewCount: f(100), Timestamp: "2024-01-01T00:00:00Z"},
		{ID: "b", CommentsCount: f(4), Timestamp: "2024-01-02T00:00:00Z"},
	}
	assert.Equal(t, Transform(raw, Options{}), Transform(raw, Options{}))
}

func TestTransformContentFilter(t *testing.T) {
	raw := []RawPost{
		{ID: "1", Type: "Image"},
		{ID: "2", Type: "Video"},
		{ID: "3", Type: "Sidecar"},
	}
	posts := Transform(raw, Options{ContentTypes: []string{TypeVideo, TypePhoto}})
	require.Len(t, posts, 2)
	assert.Equal(t, "1", posts[0].ID)
	assert.Equal(t, TypePhoto, posts[0].Type)
	assert.Equal(t, "2", posts[1].ID)

	assert.Len(t, Transform(raw, Options{}), 3)
	assert.Empty(t, Transform(nil, Options{}))
}

func TestEngagementFormulas(t *testing.T) {
	assert.InDelta(t, 20.0, ViewRatio.Engagement(150, 50, 1000), 1e-9)
	assert.InDelta(t, 2.0, PerHundred.Engagement(150, 50, 1000), 1e-9)
	assert.InDelta(t, 200.0, EngagementFormula("").Engagement(1, 1, 0), 1e-9)

	got, err := ParseFormula(" PER_HUNDRED ")
	require.NoError(t, err)
	assert.Equal(t, PerHundred, got)
	got, err = ParseFormula("")
	require.NoError(t, err)
	assert.Equal(t, ViewRatio, got)
	_, err = ParseFormula("reach")
	assert.Error(t, err)
}

func TestPostJSONShape(t *testing.T) {
	p := Transform([]RawPost{{ID: "1", Timestamp: "2024-01-01T00:00:00Z"}}, Options{})[0]
	data, err := json.Marshal(p)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))
	metrics := m["metrics"].(map[string]interface{})
	for _, key := range []string{"views", "likes", "comments", "shares", "saves", "engagement", "followsFromPost", "averageWatchPercentage"} {
		assert.Contains(t, metrics, key)
	}
	assert.Equal(t, "2024-01-01T00:00:00Z", m["timestamp"])
}

func TestDecodeRaw(t *testing.T) {
	items := []json.RawMessage{
		json.RawMessage(`{"id":"1","likesCount":5,"caption":"hi"}`),
		json.RawMessage(`"a string"`),
		json.RawMessage(`{"id":"2","likesCount":"lots"}`),
		json.RawMessage(`null`),
	}
	raw, skipped, err := DecodeRaw(items)
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	require.Len(t, raw, 2)
	assert.Equal(t, "hi", raw[0].Caption)
	assert.Equal(t, 5.0, *raw[0].LikesCount)
	assert.Equal(t, "2", raw[1].ID)
	assert.Zero(t, count(raw[1].LikesCount))

	_, _, err = DecodeRaw([]json.RawMessage{json.RawMessage(`{"id":`)})
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	posts := []Post{
		{ID: "a", Metrics: Metrics{Views: 100, Likes: 10, Engagement: 10}},
		{ID: "b", Metrics: Metrics{Views: 300, Likes: 30, Comments: 3, Engagement: 11}},
		{ID: "c", Metrics: Metrics{Views: 300, Likes: 1, Engagement: 12}},
	}
	s := Summarize(posts)
	assert.Equal(t, 3, s.Posts)
	assert.Equal(t, int64(700), s.TotalViews)
	assert.Equal(t, int64(41), s.TotalLikes)
	assert.Equal(t, int64(3), s.TotalComments)
	assert.InDelta(t, 700.0/3, s.AverageViews, 1e-9)
	assert.InDelta(t, 11.0, s.AverageEngagement, 1e-9)
	require.NotNil(t, s.TopPost)
	assert.Equal(t, "c", s.TopPost.ID)

	empty := Summarize(nil)
	assert.Zero(t, empty.Posts)
	assert.Nil(t, empty.TopPost)
}

func TestGrowth(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	deltas := Growth([]Point{
		{Date: day(3), Followers: 1100},
		{Date: day(1), Followers: 0},
		{Date: day(2), Followers: 1000},
	})
	require.Len(t, deltas, 2)
	assert.Equal(t, day(2), deltas[0].Date)
	assert.Equal(t, int64(1000), deltas[0].Change)
	assert.Zero(t, deltas[0].Percent)
	assert.Equal(t, int64(100), deltas[1].Change)
	assert.InDelta(t, 10.0, deltas[1].Percent, 1e-9)

	assert.Nil(t, Growth([]Point{{Date: day(1)}}))
}

func TestSortByEngagement(t *testing.T) {
	posts := []Post{{ID: "a", Metrics: Metrics{Engagement: 1}}, {ID: "b", Metrics: Metrics{Engagement: 3}}}
	SortByEngagement(posts)
	assert.Equal(t, "b", posts[0].ID)
}

func TestFollowers(t *testing.T) {
	n, ok := Followers([]RawPost{{ID: "1"}, {FollowersCount: f(120)}, {FollowersCount: f(90)}})
	assert.True(t, ok)
	assert.Equal(t, int64(120), n)

	_, ok = Followers([]RawPost{{ID: "1"}})
	assert.False(t, ok)
}
