package scraper

import (
	"context"
	stderrors "errors"
	"time"

	"goingviral/pkg/apify"
	"goingviral/pkg/errors"
	"goingviral/pkg/logger"
	"goingviral/pkg/metrics"
	"goingviral/pkg/ratelimit"
	"goingviral/pkg/retry"
	"goingviral/pkg/storage"
)

// Result is the outcome of one successful fetch.
type Result struct {
	Variant  string          `json:"variant"`
	Username string          `json:"username"`
	Handle   apify.JobHandle `json:"handle"`
	Posts    []metrics.Post  `json:"posts"`
	// Raw is the undecoded dataset, kept only for variants that expose it.
	Raw apify.Items `json:"-"`
	// Skipped counts dataset items that were not post records.
	Skipped int `json:"skipped,omitempty"`
}

// StatusFunc observes every status check of a run.
type StatusFunc func(username string, h apify.JobHandle, attempt, maxAttempts int, status apify.RunStatus)

// Scraper runs the launch, poll, fetch, transform pipeline for any
// registered variant.
type Scraper struct {
	client      RunClient
	variants    *Registry
	limiter     ratelimit.Limiter
	waitOnLimit bool
	store       storage.Store
	datasetCfg  *retry.Config
	onStatus    StatusFunc
	logger      logger.Logger
	now         func() time.Time
}

// Option customizes a Scraper.
type Option func(*Scraper)

// WithLimiter throttles launches. With wait set a launch blocks for a
// token, otherwise it fails with a rate_limit error.
func WithLimiter(l ratelimit.Limiter, wait bool) Option {
	return func(s *Scraper) {
		s.limiter = l
		s.waitOnLimit = wait
	}
}

// WithStore records a snapshot after every successful fetch.
func WithStore(store storage.Store) Option {
	return func(s *Scraper) { s.store = store }
}

// WithDatasetRetry replaces the retry policy of dataset downloads.
func WithDatasetRetry(cfg *retry.Config) Option {
	return func(s *Scraper) { s.datasetCfg = cfg }
}

// WithStatusFunc observes status checks.
func WithStatusFunc(fn StatusFunc) Option {
	return func(s *Scraper) { s.onStatus = fn }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scraper) { s.logger = l }
}

// WithClock replaces the clock used for transform fallbacks and snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *Scraper) { s.now = now }
}

// New creates a Scraper.
func New(client RunClient, variants *Registry, opts ...Option) *Scraper {
	s := &Scraper{
		client:   client,
		variants: variants,
		logger:   logger.NewNopLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.datasetCfg == nil {
		s.datasetCfg = DatasetRetryConfig(3, s.logger)
	}
	return s
}

// DatasetRetryConfig retries transient dataset failures with exponential
// backoff.
func DatasetRetryConfig(attempts int, log logger.Logger) *retry.Config {
	if attempts <= 0 {
		attempts = 1
	}
	return &retry.Config{
		MaxAttempts: attempts,
		Backoff:     retry.DatasetBackoff(),
		RetryIf:     retry.DefaultRetryIf,
		Logger:      log,
	}
}

// Variants returns the registry the scraper serves.
func (s *Scraper) Variants() *Registry {
	return s.variants
}

// Fetch runs the whole pipeline for username with the named variant.
func (s *Scraper) Fetch(ctx context.Context, variantName, username string) (*Result, error) {
	v, err := s.variants.Get(variantName)
	if err != nil {
		return nil, err
	}

	username = apify.SanitizeUsername(username)
	if username == "" {
		return nil, errors.Validation("Username is required")
	}

	h, err := s.Launch(ctx, v, username)
	if err != nil {
		return nil, err
	}
	return s.Resume(ctx, v, username, *h)
}

// Launch starts a run of v for username without waiting for it.
func (s *Scraper) Launch(ctx context.Context, v Variant, username string) (*apify.JobHandle, error) {
	username = apify.SanitizeUsername(username)
	if username == "" {
		return nil, errors.Validation("Username is required")
	}

	if s.limiter != nil {
		if s.waitOnLimit {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		} else if !s.limiter.Allow() {
			logger.LogRateLimit(s.logger, "launch")
			return nil, errors.RateLimited("Too many scraping jobs started, try again shortly")
		}
	}

	s.logger.InfoWithFields("launching scrape job", map[string]interface{}{
		"variant":  v.Name,
		"actor":    v.ActorID,
		"username": username,
	})

	return s.client.StartRun(ctx, v.ActorID, v.BuildInput(username))
}

// Resume waits for the run behind h to finish and collects its results.
func (s *Scraper) Resume(ctx context.Context, v Variant, username string, h apify.JobHandle) (*Result, error) {
	run, err := s.waitForRun(ctx, v, username, h)
	if err != nil {
		return nil, err
	}
	if h.DatasetID == "" {
		h.DatasetID = run.DefaultDatasetID
	}

	items, err := retry.DoWithResult(ctx, func(ctx context.Context) (apify.Items, error) {
		return s.client.DatasetItems(ctx, h, v.UseDatasetID)
	}, s.datasetCfg)
	if err != nil {
		return nil, err
	}

	raw, skipped, err := metrics.DecodeRaw(items)
	if err != nil {
		return nil, errors.Parse("Failed to parse results", err)
	}

	posts := v.Transform(raw, metrics.Options{Now: s.now})
	result := &Result{
		Variant:  v.Name,
		Username: username,
		Handle:   h,
		Posts:    posts,
		Skipped:  skipped,
	}
	if v.ExposeRaw {
		result.Raw = items
	}

	s.logger.InfoWithFields("scrape job complete", map[string]interface{}{
		"variant":  v.Name,
		"username": username,
		"run_id":   h.JobID,
		"items":    len(items),
		"posts":    len(posts),
		"skipped":  skipped,
	})

	s.saveSnapshot(ctx, v, result, raw)
	return result, nil
}

func (s *Scraper) waitForRun(ctx context.Context, v Variant, username string, h apify.JobHandle) (*apify.Run, error) {
	cfg := retry.PollConfig{
		Interval:       v.PollInterval,
		MaxAttempts:    v.MaxAttempts,
		TolerateErrors: v.TolerateTransientErrors,
		Logger:         s.logger,
	}

	attempt := 0
	check := func(ctx context.Context) (*apify.Run, error) {
		attempt++
		run, err := s.client.GetRun(ctx, h)
		if err != nil {
			return nil, err
		}
		logger.LogRunStatus(s.logger, h.JobID, string(run.Status), attempt, v.MaxAttempts)
		if s.onStatus != nil {
			s.onStatus(username, h, attempt, v.MaxAttempts, run.Status)
		}
		return run, nil
	}
	classify := func(run *apify.Run) retry.Outcome {
		switch run.Status.Normalize() {
		case apify.JobSucceeded:
			return retry.Succeeded
		case apify.JobPending:
			return retry.Pending
		default:
			return retry.Terminal
		}
	}

	run, err := retry.Poll(ctx, cfg, check, classify)
	switch {
	case err == nil:
		return run, nil
	case stderrors.Is(err, retry.ErrTerminalState):
		return nil, errors.JobFailed(string(run.Status))
	case stderrors.Is(err, retry.ErrAttemptsExhausted):
		return nil, errors.JobTimedOut(v.MaxAttempts)
	default:
		return nil, err
	}
}

func (s *Scraper) saveSnapshot(ctx context.Context, v Variant, result *Result, raw []metrics.RawPost) {
	if s.store == nil {
		return
	}

	snap := &storage.Snapshot{
		Username: result.Username,
		Variant:  v.Name,
		RunID:    result.Handle.JobID,
		TakenAt:  s.now().UTC(),
		Summary:  metrics.Summarize(result.Posts),
		Posts:    result.Posts,
	}
	if followers, ok := metrics.Followers(raw); ok {
		snap.Followers = &followers
	}

	// A failed save never fails the fetch.
	if err := s.store.Save(ctx, snap); err != nil {
		s.logger.WarnWithFields("failed to save snapshot", map[string]interface{}{
			"username": result.Username,
			"error":    err.Error(),
		})
	}
}
