package scraper

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"goingviral/pkg/apify"
	"goingviral/pkg/config"
	"goingviral/pkg/errors"
	"goingviral/pkg/metrics"
)

// Built-in variant names. Each is served at /functions/v1/<name>.
const (
	VariantData    = "instagram-data"
	VariantPosts   = "instagram-posts"
	VariantProfile = "instagram-profile"
	VariantMedia   = "instagram-media"
	VariantRaw     = "instagram-raw"
)

// DefaultResultsLimit is how many posts a run is asked for.
const DefaultResultsLimit = 100

// InputFunc builds the actor input for one username.
type InputFunc func(username string, limit int) apify.ActorInput

// Variant is one parameterization of the fetch pipeline.
type Variant struct {
	Name         string
	ActorID      string
	PollInterval time.Duration
	MaxAttempts  int
	ResultsLimit int
	Formula      metrics.EngagementFormula
	// ContentTypes restricts output to these post types when set.
	ContentTypes []string
	// TolerateTransientErrors keeps polling through failed status checks.
	TolerateTransientErrors bool
	// UseDatasetID reads results by dataset id instead of through the run.
	UseDatasetID bool
	// ExposeRaw allows the raw dataset to be echoed back on request.
	ExposeRaw bool
	Input     InputFunc
}

// BuildInput returns the actor input for username.
func (v Variant) BuildInput(username string) apify.ActorInput {
	limit := v.ResultsLimit
	if limit <= 0 {
		limit = DefaultResultsLimit
	}
	if v.Input == nil {
		return postsInput(username, limit)
	}
	return v.Input(username, limit)
}

// Transform converts decoded dataset records with this variant's formula
// and content filter.
func (v Variant) Transform(raw []metrics.RawPost, opts metrics.Options) []metrics.Post {
	opts.Formula = v.Formula
	opts.ContentTypes = v.ContentTypes
	return metrics.Transform(raw, opts)
}

func residentialProxy() *apify.Proxy {
	return &apify.Proxy{UseApifyProxy: true, ApifyProxyGroups: []string{"RESIDENTIAL"}}
}

func postsInput(username string, limit int) apify.ActorInput {
	return apify.ActorInput{
		Usernames:    []string{username},
		ResultsLimit: limit,
		ResultsType:  "posts",
		SearchType:   "user",
		Proxy:        residentialProxy(),
	}
}

func postScraperInput(username string, limit int) apify.ActorInput {
	return apify.ActorInput{
		Username:     []string{username},
		ResultsLimit: limit,
		Proxy:        residentialProxy(),
	}
}

func profileInput(username string, limit int) apify.ActorInput {
	yes, no := true, false
	in := postsInput(username, limit)
	in.ScrapePosts = &yes
	in.ScrapeStories = &no
	in.ScrapeHighlights = &no
	in.ScrapeFollowers = &no
	in.ScrapeFollowing = &no
	return in
}

func generalInput(username string, limit int) apify.ActorInput {
	return apify.ActorInput{
		DirectURLs:   []string{apify.ProfileURL(username)},
		ResultsLimit: limit,
		ResultsType:  "posts",
		SearchType:   "user",
		Proxy:        residentialProxy(),
	}
}

// DefaultVariants returns the built-in variants.
func DefaultVariants() []Variant {
	return []Variant{
		{
			Name:         VariantData,
			ActorID:      apify.ProfileScraperActor,
			PollInterval: 10 * time.Second,
			MaxAttempts:  30,
			Formula:      metrics.ViewRatio,
			Input:        postsInput,
		},
		{
			Name:         VariantPosts,
			ActorID:      apify.PostScraperActor,
			PollInterval: 5 * time.Second,
			MaxAttempts:  24,
			Formula:      metrics.PerHundred,
			Input:        postScraperInput,
		},
		{
			Name:                    VariantProfile,
			ActorID:                 apify.ProfileScraperActor,
			PollInterval:            2 * time.Second,
			MaxAttempts:             30,
			Formula:                 metrics.ViewRatio,
			TolerateTransientErrors: true,
			Input:                   profileInput,
		},
		{
			Name:         VariantMedia,
			ActorID:      apify.PostScraperActor,
			PollInterval: 5 * time.Second,
			MaxAttempts:  30,
			Formula:      metrics.ViewRatio,
			ContentTypes: []string{metrics.TypeVideo, metrics.TypePhoto},
			Input:        postScraperInput,
		},
		{
			Name:         VariantRaw,
			ActorID:      apify.GeneralScraperActor,
			PollInterval: 3 * time.Second,
			MaxAttempts:  24,
			Formula:      metrics.PerHundred,
			UseDatasetID: true,
			ExposeRaw:    true,
			Input:        generalInput,
		},
	}
}

// Registry holds the enabled variants by name.
type Registry struct {
	mu       sync.RWMutex
	variants map[string]Variant
}

// NewRegistry creates a registry holding variants.
func NewRegistry(variants ...Variant) *Registry {
	r := &Registry{variants: make(map[string]Variant, len(variants))}
	for _, v := range variants {
		r.variants[v.Name] = v
	}
	return r
}

// NewDefaultRegistry returns the built-in variants with overrides applied.
func NewDefaultRegistry(overrides map[string]config.VariantConfig) (*Registry, error) {
	r := NewRegistry(DefaultVariants()...)
	if err := r.Apply(overrides); err != nil {
		return nil, err
	}
	return r, nil
}

// Apply merges overrides into the registry. Unknown names are rejected.
func (r *Registry) Apply(overrides map[string]config.VariantConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, o := range overrides {
		v, ok := r.variants[name]
		if !ok {
			return fmt.Errorf("unknown variant %q", name)
		}
		if o.Disabled {
			delete(r.variants, name)
			continue
		}
		if o.ActorID != "" {
			v.ActorID = o.ActorID
		}
		if o.PollInterval > 0 {
			v.PollInterval = o.PollInterval
		}
		if o.MaxAttempts > 0 {
			v.MaxAttempts = o.MaxAttempts
		}
		if o.ResultsLimit > 0 {
			v.ResultsLimit = o.ResultsLimit
		}
		if o.Engagement != "" {
			f, err := metrics.ParseFormula(o.Engagement)
			if err != nil {
				return fmt.Errorf("variant %q: %w", name, err)
			}
			v.Formula = f
		}
		if o.TolerateTransientErrors != nil {
			v.TolerateTransientErrors = *o.TolerateTransientErrors
		}
		r.variants[name] = v
	}
	return nil
}

// Get returns the named variant.
func (r *Registry) Get(name string) (Variant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.variants[name]
	if !ok {
		return Variant{}, errors.NotFound(fmt.Sprintf("Unknown function: %s", name))
	}
	return v, nil
}

// Names lists the enabled variants in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.variants))
	for name := range r.variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the enabled variants sorted by name.
func (r *Registry) All() []Variant {
	names := r.Names()
	out := make([]Variant, 0, len(names))
	for _, n := range names {
		v, _ := r.Get(n)
		out = append(out, v)
	}
	return out
}
