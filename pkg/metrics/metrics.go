// Package metrics turns scraped Instagram posts into the normalized Post
// records the dashboard renders.
package metrics

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RawPost is the subset of a scraped post record that is read. Every
// field is optional.
type RawPost struct {
	ID             string   `json:"id"`
	ShortCode      string   `json:"shortCode"`
	OwnerUsername  string   `json:"ownerUsername"`
	DisplayURL     string   `json:"displayUrl"`
	PreviewURL     string   `json:"previewUrl"`
	Caption        string   `json:"caption"`
	Timestamp      string   `json:"timestamp"`
	Type           string   `json:"type"`
	LikesCount     *float64 `json:"likesCount"`
	CommentsCount  *float64 `json:"commentsCount"`
	VideoViewCount *float64 `json:"videoViewCount"`
	VideoPlayCount *float64 `json:"videoPlayCount"`
	SharesCount    *float64 `json:"sharesCount"`
	SavesCount     *float64 `json:"savesCount"`
	FollowersCount *float64 `json:"followersCount"`
}

// Metrics are the per-post counters.
type Metrics struct {
	Views                  int64   `json:"views"`
	Likes                  int64   `json:"likes"`
	Comments               int64   `json:"comments"`
	Shares                 int64   `json:"shares"`
	Saves                  int64   `json:"saves"`
	Engagement             float64 `json:"engagement"`
	FollowsFromPost        int64   `json:"followsFromPost"`
	AverageWatchPercentage float64 `json:"averageWatchPercentage"`
}

// Post is one normalized post.
type Post struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Thumbnail string    `json:"thumbnail"`
	Caption   string    `json:"caption"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type,omitempty"`
	Metrics   Metrics   `json:"metrics"`
}

// Content types after normalization.
const (
	TypePhoto    = "Photo"
	TypeVideo    = "Video"
	TypeCarousel = "Carousel"
)

// EngagementFormula selects how engagement is derived.
type EngagementFormula string

const (
	// ViewRatio is (likes+comments) per view, as a percentage.
	ViewRatio EngagementFormula = "view_ratio"
	// PerHundred is (likes+comments)/100.
	PerHundred EngagementFormula = "per_hundred"
)

// ParseFormula validates a formula name. Empty means ViewRatio.
func ParseFormula(name string) (EngagementFormula, error) {
	switch EngagementFormula(strings.ToLower(strings.TrimSpace(name))) {
	case "", ViewRatio:
		return ViewRatio, nil
	case PerHundred:
		return PerHundred, nil
	default:
		return "", fmt.Errorf("unknown engagement formula %q", name)
	}
}

// Engagement computes the derived engagement value.
func (f EngagementFormula) Engagement(likes, comments, views int64) float64 {
	interactions := float64(likes) + float64(comments)
	switch f {
	case PerHundred:
		return interactions / 100
	default:
		denom := float64(views)
		if denom < 1 {
			denom = 1
		}
		return interactions / denom * 100
	}
}

// Options controls one Transform call.
type Options struct {
	Formula EngagementFormula
	// ContentTypes keeps only posts of these normalized types when set.
	ContentTypes []string
	// Now and NewID replace the clock and id source for the fallbacks.
	Now   func() time.Time
	NewID func() string
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o Options) newID(now time.Time) string {
	if o.NewID != nil {
		return o.NewID()
	}
	return fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}

// NormalizeType maps the scraper's type names onto Photo, Video, Carousel.
func NormalizeType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "image", "photo", "graphimage":
		return TypePhoto
	case "video", "graphvideo", "reel", "clips":
		return TypeVideo
	case "sidecar", "graphsidecar", "carousel":
		return TypeCarousel
	default:
		return t
	}
}

// Transform maps raw posts to Posts. It never fails: missing counts are 0,
// missing text is "", a missing timestamp is now and a missing id gets a
// generated one.
func Transform(raw []RawPost, opts Options) []Post {
	allowed := make(map[string]bool, len(opts.ContentTypes))
	for _, t := range opts.ContentTypes {
		allowed[NormalizeType(t)] = true
	}

	posts := make([]Post, 0, len(raw))
	for _, r := range raw {
		kind := NormalizeType(r.Type)
		if len(allowed) > 0 && !allowed[kind] {
			continue
		}
		posts = append(posts, transformOne(r, kind, opts))
	}
	return posts
}

func transformOne(r RawPost, kind string, opts Options) Post {
	now := opts.now()

	views := count(r.VideoViewCount)
	if r.VideoViewCount == nil {
		views = count(r.VideoPlayCount)
	}
	likes := count(r.LikesCount)
	comments := count(r.CommentsCount)

	id := r.ID
	if id == "" {
		id = r.ShortCode
	}
	if id == "" {
		id = opts.newID(now)
	}

	thumbnail := r.DisplayURL
	if thumbnail == "" {
		thumbnail = r.PreviewURL
	}

	ts, ok := parseTimestamp(r.Timestamp)
	if !ok {
		ts = now.UTC()
	}

	return Post{
		ID:        id,
		Username:  r.OwnerUsername,
		Thumbnail: thumbnail,
		Caption:   r.Caption,
		Timestamp: ts,
		Type:      kind,
		Metrics: Metrics{
			Views:      views,
			Likes:      likes,
			Comments:   comments,
			Shares:     count(r.SharesCount),
			Saves:      count(r.SavesCount),
			Engagement: opts.Formula.Engagement(likes, comments, views),
		},
	}
}

// count reads an optional counter. Hidden counts arrive as -1.
func count(v *float64) int64 {
	if v == nil || math.IsNaN(*v) || *v < 0 {
		return 0
	}
	if *v >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(*v)
}

func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000Z", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Followers returns the largest follower count present in raw. Profile
// records carry it; post records usually do not.
func Followers(raw []RawPost) (int64, bool) {
	var best int64
	found := false
	for _, r := range raw {
		if r.FollowersCount == nil {
			continue
		}
		if n := count(r.FollowersCount); !found || n > best {
			best = n
		}
		found = true
	}
	return best, found
}

// DecodeRaw decodes dataset items into RawPost values. Items that are not
// objects are skipped and counted. A field of the wrong type is left at
// its zero value.
func DecodeRaw(items []json.RawMessage) ([]RawPost, int, error) {
	out := make([]RawPost, 0, len(items))
	skipped := 0
	for _, item := range items {
		trimmed := bytes.TrimSpace(item)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			skipped++
			continue
		}
		var r RawPost
		if err := json.Unmarshal(trimmed, &r); err != nil {
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &typeErr) {
				return nil, skipped, err
			}
		}
		out = append(out, r)
	}
	return out, skipped, nil
}
