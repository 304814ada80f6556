package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goingviral/pkg/apify"
	"goingviral/pkg/apify/apifytest"
	"goingviral/pkg/checkpoint"
	errs "goingviral/pkg/errors"
	"goingviral/pkg/retry"
	"goingviral/pkg/scraper"
)

func newResumeFixture(t *testing.T, resume bool) (*checkpointedFetcher, *apifytest.Server, string) {
	t.Helper()
	api := apifytest.NewServer(t)
	client := apify.NewClient(apifytest.Token, 5*time.Second, nil, apify.WithBaseURL(api.URL))

	variants := scraper.DefaultVariants()
	for i := range variants {
		variants[i].PollInterval = time.Millisecond
		variants[i].MaxAttempts = 3
	}

	dir := t.TempDir()
	f := newCheckpointedFetcher(nil, dir, resume, nil)
	f.scraper = scraper.New(client, scraper.NewRegistry(variants...),
		scraper.WithDatasetRetry(&retry.Config{
			MaxAttempts: 1,
			Backoff:     retry.Constant(time.Millisecond),
			RetryIf:     retry.DefaultRetryIf,
		}),
		scraper.WithStatusFunc(func(_ string, h apify.JobHandle, _, _ int, status apify.RunStatus) {
			f.recordStatus(h, status)
		}),
	)
	return f, api, dir
}

func TestCheckpointedFetchRemovesCheckpointOnSuccess(t *testing.T) {
	f, api, dir := newResumeFixture(t, false)
	api.SetItems(map[string]interface{}{"id": "1", "likesCount": 5, "commentsCount": 1, "videoViewCount": 100})

	result, err := f.Fetch(context.Background(), scraper.VariantData, "@natgeo")
	require.NoError(t, err)
	assert.Len(t, result.Posts, 1)
	assert.Equal(t, "natgeo", result.Username)

	m, err := checkpoint.NewManager(dir, scraper.VariantData, "natgeo")
	require.NoError(t, err)
	assert.False(t, m.Exists(), "checkpoint should be removed after success")
}

func TestCheckpointedFetchKeepsCheckpointOnTimeout(t *testing.T) {
	f, api, dir := newResumeFixture(t, false)
	api.Script(apify.StatusRunning)

	_, err := f.Fetch(context.Background(), scraper.VariantData, "natgeo")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeJobTimedOut))

	m, err := checkpoint.NewManager(dir, scraper.VariantData, "natgeo")
	require.NoError(t, err)
	cp, err := m.Load()
	require.NoError(t, err)
	require.NotNil(t, cp, "a run that may still finish keeps its checkpoint")
	assert.Equal(t, 3, cp.Checks)
	assert.Equal(t, string(apify.StatusRunning), cp.LastStatus)
}

func TestCheckpointedFetchResumesRun(t *testing.T) {
	f, api, dir := newResumeFixture(t, true)
	api.Script(apify.StatusRunning)

	_, err := f.Fetch(context.Background(), scraper.VariantData, "natgeo")
	require.Error(t, err)
	require.Len(t, api.Launches(), 1)

	api.Script(apify.StatusSucceeded)
	result, err := f.Fetch(context.Background(), scraper.VariantData, "natgeo")
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Len(t, api.Launches(), 1, "resume must not launch a second run")

	m, err := checkpoint.NewManager(dir, scraper.VariantData, "natgeo")
	require.NoError(t, err)
	assert.False(t, m.Exists())
}

func TestCheckpointedFetchDropsCheckpointOnFailedRun(t *testing.T) {
	f, api, dir := newResumeFixture(t, true)
	api.Script(apify.StatusFailed)

	_, err := f.Fetch(context.Background(), scraper.VariantData, "natgeo")
	require.Error(t, err)
	assert.Equal(t, "Run failed with status: FAILED", errs.Message(err))

	m, err := checkpoint.NewManager(dir, scraper.VariantData, "natgeo")
	require.NoError(t, err)
	assert.False(t, m.Exists())
}

func TestCheckpointedFetchValidation(t *testing.T) {
	f, api, _ := newResumeFixture(t, false)

	_, err := f.Fetch(context.Background(), scraper.VariantData, "  @ ")
	assert.True(t, errs.Is(err, errs.ErrorTypeValidation))

	_, err = f.Fetch(context.Background(), "nope", "natgeo")
	assert.Error(t, err)
	assert.Empty(t, api.Launches())
}

func TestKeepCheckpoint(t *testing.T) {
	ctx := context.Background()
	assert.False(t, keepCheckpoint(ctx, nil))
	assert.True(t, keepCheckpoint(ctx, errs.JobTimedOut(3)))
	assert.False(t, keepCheckpoint(ctx, errs.JobFailed("ABORTED")))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.True(t, keepCheckpoint(cancelled, errs.JobFailed("FAILED")))
}
