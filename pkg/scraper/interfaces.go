package scraper

import (
	"context"

	"goingviral/pkg/apify"
)

// RunClient defines the actor-run operations the pipeline needs
type RunClient interface {
	StartRun(ctx context.Context, actorID string, input apify.ActorInput) (*apify.JobHandle, error)
	GetRun(ctx context.Context, h apify.JobHandle) (*apify.Run, error)
	DatasetItems(ctx context.Context, h apify.JobHandle, byDataset bool) (apify.Items, error)
}

var _ RunClient = (*apify.Client)(nil)
