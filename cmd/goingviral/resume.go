package main

import (
	"context"
	stderrors "errors"
	"sync"

	"goingviral/pkg/apify"
	"goingviral/pkg/checkpoint"
	"goingviral/pkg/errors"
	"goingviral/pkg/logger"
	"goingviral/pkg/scraper"
)

// checkpointedFetcher records every launched run on disk so an interrupted
// fetch can re-attach to the run instead of paying for a new one.
type checkpointedFetcher struct {
	scraper *scraper.Scraper
	dir     string
	resume  bool
	logger  logger.Logger

	mu     sync.Mutex
	active map[string]*tracked // by run id
}

type tracked struct {
	manager    *checkpoint.Manager
	checkpoint *checkpoint.Checkpoint
}

func newCheckpointedFetcher(s *scraper.Scraper, dir string, resume bool, log logger.Logger) *checkpointedFetcher {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &checkpointedFetcher{
		scraper: s,
		dir:     dir,
		resume:  resume,
		logger:  log,
		active:  make(map[string]*tracked),
	}
}

// Fetch implements fetchpool.Fetcher
func (c *checkpointedFetcher) Fetch(ctx context.Context, variant, username string) (*scraper.Result, error) {
	v, err := c.scraper.Variants().Get(variant)
	if err != nil {
		return nil, err
	}
	username = apify.SanitizeUsername(username)
	if username == "" {
		return nil, errors.Validation("Username is required")
	}

	manager, err := checkpoint.NewManager(c.dir, v.Name, username)
	if err != nil {
		return nil, err
	}

	var cp *checkpoint.Checkpoint
	if c.resume {
		cp, err = manager.Load()
		if err != nil {
			c.logger.WithError(err).WithField("username", username).Warn("ignoring unreadable checkpoint")
			cp = nil
		}
	}

	if cp == nil {
		h, err := c.scraper.Launch(ctx, v, username)
		if err != nil {
			return nil, err
		}
		cp, err = manager.Create(username, v.Name, *h)
		if err != nil {
			// The run is already paid for; finish it without a checkpoint.
			c.logger.WithError(err).WithField("username", username).Warn("checkpoint not written")
			return c.scraper.Resume(ctx, v, username, *h)
		}
	} else {
		c.logger.WithFields(map[string]interface{}{
			"username": username,
			"run_id":   cp.Handle.JobID,
			"checks":   cp.Checks,
		}).Info("resuming run from checkpoint")
	}

	c.track(cp.Handle.JobID, manager, cp)
	defer c.untrack(cp.Handle.JobID)

	result, err := c.scraper.Resume(ctx, v, username, cp.Handle)
	if keepCheckpoint(ctx, err) {
		return result, err
	}
	if delErr := manager.Delete(); delErr != nil {
		c.logger.WithError(delErr).Warn("failed to remove checkpoint")
	}
	return result, err
}

// keepCheckpoint reports whether the run may still finish and be resumed
func keepCheckpoint(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx.Err() != nil || stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch errors.TypeOf(err) {
	case errors.ErrorTypeJobTimedOut, errors.ErrorTypeNetwork, errors.ErrorTypeDatasetFetch:
		return true
	default:
		return false
	}
}

func (c *checkpointedFetcher) track(runID string, m *checkpoint.Manager, cp *checkpoint.Checkpoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active[runID] = &tracked{manager: m, checkpoint: cp}
}

func (c *checkpointedFetcher) untrack(runID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.active, runID)
}

// recordStatus stores a status check on the run's checkpoint
func (c *checkpointedFetcher) recordStatus(h apify.JobHandle, status apify.RunStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.active[h.JobID]
	if !ok {
		return
	}
	if err := t.manager.RecordCheck(t.checkpoint, string(status)); err != nil {
		c.logger.WithError(err).Debug("failed to record status check")
	}
}
