// Package ratelimit provides the limiters goingviral puts in front of
// paid or abusable operations.
//
// Token Bucket:
//   - Refills continuously at a fixed rate up to a burst capacity
//   - Guards actor launches, which cost scraping credits
//
// Sliding Window:
//   - Tracks requests within a moving time window
//   - KeyedWindow keeps one window per key and limits magic-link emails
//     per address
//
// Usage:
//
//	// 30 launches per minute, bursts of 5
//	launches := ratelimit.NewTokenBucket(30, time.Minute, 5)
//	if err := launches.Wait(ctx); err != nil {
//	    return err
//	}
//
//	// 5 magic links per address per hour
//	links := ratelimit.NewKeyedWindow(5, time.Hour)
//	if !links.Allow(email) {
//	    retry := links.RetryAfter(email)
//	}
package ratelimit
