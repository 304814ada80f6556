package main

import (
	"context"
	"time"

	"goingviral/pkg/apify"
	"goingviral/pkg/auth"
	"goingviral/pkg/config"
	"goingviral/pkg/identity"
	"goingviral/pkg/logger"
	"goingviral/pkg/ratelimit"
	"goingviral/pkg/scraper"
	"goingviral/pkg/storage"
)

// applyStoredCredentials fills the API token and anon key from the
// credential stores when the configuration has none. A missing token is
// not fatal here: the server starts anyway and reports it per request.
func applyStoredCredentials(cfg *config.Config, log logger.Logger) {
	if cfg.HasAPIToken() && cfg.Identity.AnonKey != "" {
		return
	}

	manager, err := auth.NewManager()
	if err != nil {
		log.WithError(err).Warn("credential stores unavailable")
		return
	}

	token, source, err := manager.ResolveToken(cfg.Apify.Token, profile)
	if err != nil {
		log.WithField("profile", profileName()).Warn("no Apify token configured")
		return
	}
	cfg.Apify.Token = token
	log.WithField("source", source).Debug("Apify token resolved")

	if cfg.Identity.AnonKey == "" {
		if cred, err := manager.Retrieve(profile); err == nil && cred.AnonKey != "" {
			cfg.Identity.AnonKey = cred.AnonKey
		}
	}
}

func profileName() string {
	if profile == "" {
		return auth.DefaultProfile
	}
	return profile
}

// buildScraper wires the actor client, variant registry and launch limiter.
// Terminal commands wait for a launch slot; the server rejects instead.
func buildScraper(cfg *config.Config, log logger.Logger, waitForSlot bool, opts ...scraper.Option) (*scraper.Scraper, error) {
	client := apify.NewClient(cfg.Apify.Token, cfg.Apify.Timeout, log, apify.WithBaseURL(cfg.Apify.BaseURL))

	registry, err := scraper.NewDefaultRegistry(cfg.Variants)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.NewTokenBucket(cfg.RateLimit.LaunchesPerMinute, time.Minute, cfg.RateLimit.BurstSize)
	base := []scraper.Option{
		scraper.WithLimiter(limiter, waitForSlot),
		scraper.WithDatasetRetry(scraper.DatasetRetryConfig(cfg.Apify.DatasetRetries, log)),
		scraper.WithLogger(log),
	}
	return scraper.New(client, registry, append(base, opts...)...), nil
}

// openStore opens the configured snapshot store, or nil when disabled
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (storage.Store, error) {
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	if store != nil {
		log.WithField("driver", cfg.Storage.Driver).Info("snapshot storage enabled")
	}
	return store, nil
}

func newIdentityClient(cfg *config.Config, log logger.Logger) *identity.Client {
	return identity.NewClient(cfg.Identity.SupabaseURL, cfg.Identity.AnonKey, cfg.Apify.Timeout, log)
}
