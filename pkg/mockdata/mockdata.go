// Package mockdata generates the sample account the dashboard shows before
// any real data has been fetched.
package mockdata

import (
	"math"
	"math/rand"
	"strconv"
	"time"

	"goingviral/pkg/metrics"
)

// DefaultPostCount is the size of the sample post list.
const DefaultPostCount = 34

// DemoUsername owns the sample posts.
const DemoUsername = "homebaker"

var postImages = []string{
	"https://images.unsplash.com/photo-1509440159596-0249088772ff",
	"https://images.unsplash.com/photo-1549931319-a545dcf3bc73",
	"https://images.unsplash.com/photo-1486427944299-d1955d23e34d",
	"https://images.unsplash.com/photo-1517686469429-8bdb88b9f907",
	"https://images.unsplash.com/photo-1495147466023-ac5c588e2e94",
	"https://images.unsplash.com/photo-1464305795204-6f5bbfc7fb81",
}

var captions = []string{
	"Sunday baking session! Finally achieved that perfect ear on my sourdough 🌾 The crumb is so open and airy! #HomeBaker #SourdoughBread",
	"First attempt at laminating dough for croissants - look at those layers! 72-hour ferment was worth the wait 🥐 #BakingJourney",
	"Weekly meal prep: Two loaves of whole wheat, one rye, and cinnamon rolls because we deserve treats 🍞 #BreadBaking",
	"Testing a new pie crust recipe - all butter, extra flaky! The secret is keeping everything COLD 🥧 #BakingFromScratch",
	"Simple pleasures: Fresh sourdough and coffee for breakfast. The morning light was too perfect not to share ☕️ #MorningBakes",
	"When the crumb structure hits just right 👌 Three days of patience for this open crumb! #BreadGoals",
}

// Generator produces sample data from its own random source.
type Generator struct {
	rng *rand.Rand
	now func() time.Time
}

// New returns a generator seeded with seed. Equal seeds and clocks give
// equal output.
func New(seed int64, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{rng: rand.New(rand.NewSource(seed)), now: now}
}

func (g *Generator) between(lo, span int) int64 {
	return int64(lo + g.rng.Intn(span))
}

// Posts returns n sample posts, newest first, one per day. Images and
// captions cycle through fixed sets of six.
func (g *Generator) Posts(n int) []metrics.Post {
	now := g.now().UTC()
	posts := make([]metrics.Post, n)
	for i := range posts {
		engagement := math.Round((g.rng.Float64()*5+5)*10) / 10
		posts[i] = metrics.Post{
			ID:        strconv.Itoa(i + 1),
			Username:  DemoUsername,
			Thumbnail: postImages[i%len(postImages)],
			Caption:   captions[i%len(captions)],
			Timestamp: now.Add(-time.Duration(i) * 24 * time.Hour),
			Type:      metrics.TypePhoto,
			Metrics: metrics.Metrics{
				Views:      g.between(10000, 50000),
				Likes:      g.between(500, 5000),
				Comments:   g.between(50, 300),
				Shares:     g.between(20, 100),
				Saves:      g.between(100, 500),
				Engagement: engagement,
			},
		}
	}
	return posts
}

// FollowerGrowth returns one follower count per day for the last days
// days, oldest first, drifting upward from a starting audience.
func (g *Generator) FollowerGrowth(days int) []metrics.Point {
	if days <= 0 {
		return nil
	}
	today := g.now().UTC().Truncate(24 * time.Hour)
	followers := g.between(8000, 4000)

	points := make([]metrics.Point, days)
	for i := range points {
		points[i] = metrics.Point{
			Date:      today.Add(-time.Duration(days-1-i) * 24 * time.Hour),
			Followers: followers,
		}
		// mostly growth with the occasional unfollow day
		followers += g.between(-40, 160)
		if followers < 0 {
			followers = 0
		}
	}
	return points
}

// Posts returns n sample posts from a time-seeded generator.
func Posts(n int) []metrics.Post {
	return New(time.Now().UnixNano(), nil).Posts(n)
}

// FollowerGrowth returns days of sample follower counts from a time-seeded
// generator.
func FollowerGrowth(days int) []metrics.Point {
	return New(time.Now().UnixNano(), nil).FollowerGrowth(days)
}
