// Package scraper orchestrates a data fetch for an Instagram account.
//
// Every fetch follows the same pipeline:
//   - Normalize the username (trim, drop a leading "@") and reject it if empty
//   - Launch an actor run, throttled by a token bucket
//   - Check the run status at a fixed interval until it is final or the
//     attempt budget runs out
//   - Download the run's dataset, retrying transient failures
//   - Transform the records into metrics.Post values
//
// What differs between endpoints is captured by a Variant: the actor, the
// polling cadence, the engagement formula, an optional content filter and
// a few behavioral flags. The five built-in variants are registered by
// NewDefaultRegistry and can be overridden from the config file.
//
// Usage:
//
//	registry, err := scraper.NewDefaultRegistry(cfg.Variants)
//	if err != nil {
//	    return err
//	}
//	s := scraper.New(client, registry,
//	    scraper.WithLimiter(ratelimit.NewTokenBucket(30, time.Minute, 5), false),
//	    scraper.WithLogger(log),
//	)
//	result, err := s.Fetch(ctx, scraper.VariantData, "@natgeo")
//
// Launch and Resume are exposed separately so a caller can record the run
// handle and re-attach to the same run later.
package scraper
