// Package retry provides the two waiting strategies goingviral needs when
// talking to the scraping service.
//
// Do retries an idempotent request with exponential or constant backoff,
// which suits one-shot downloads such as a run's dataset:
//
//	err := retry.Do(ctx, func(ctx context.Context) error {
//		items, err = client.DatasetItems(ctx, handle)
//		return err
//	}, &retry.Config{MaxAttempts: 3, Backoff: retry.DatasetBackoff()})
//
// Poll checks a long-running job on a fixed interval until a caller-supplied
// classifier says it succeeded or reached a terminal state:
//
//	run, err := retry.Poll(ctx, retry.PollConfig{Interval: 10 * time.Second, MaxAttempts: 30},
//		func(ctx context.Context) (*apify.Run, error) { return client.GetRun(ctx, handle) },
//		classifyRun)
//	switch {
//	case errors.Is(err, retry.ErrTerminalState):     // run failed upstream
//	case errors.Is(err, retry.ErrAttemptsExhausted): // gave up waiting
//	}
//
// Both honor ctx: a cancelled caller stops the wait immediately.
package retry
