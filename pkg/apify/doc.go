// Package apify is a client for the Apify actor-run REST API, the
// scraping service behind every goingviral data fetch.
//
// A fetch is three calls: launch a run, check its status until it is
// final, then download its dataset.
//
//	c := apify.NewClient(cfg.Apify.Token, cfg.Apify.Timeout, log)
//	h, err := c.StartRun(ctx, apify.ProfileScraperActor, apify.ActorInput{
//		Usernames:    []string{"natgeo"},
//		ResultsLimit: 100,
//	})
//	run, err := c.GetRun(ctx, *h)
//	if run.Status.Normalize() == apify.JobSucceeded {
//		items, err := c.DatasetItems(ctx, *h, false)
//	}
//
// All failures are *errors.Error values typed as launch_failed, network,
// server_error, dataset_fetch or parsing. The token travels as a query
// parameter and is redacted from everything the client logs.
package apify
