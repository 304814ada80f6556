package storage

import (
	"context"
	"fmt"
	"time"

	"goingviral/pkg/config"
	"goingviral/pkg/metrics"
)

// Snapshot is the result of one successful fetch for an account.
type Snapshot struct {
	ID        string          `json:"id"`
	Username  string          `json:"username"`
	Variant   string          `json:"variant"`
	RunID     string          `json:"runId,omitempty"`
	TakenAt   time.Time       `json:"takenAt"`
	Followers *int64          `json:"followers,omitempty"`
	Summary   metrics.Summary `json:"summary"`
	Posts     []metrics.Post  `json:"posts"`
}

// Store persists snapshots. Implementations are safe for concurrent use.
type Store interface {
	Save(ctx context.Context, s *Snapshot) error
	// List returns the snapshots of username, oldest first. A limit of 0
	// or less returns all of them.
	List(ctx context.Context, username string, limit int) ([]Snapshot, error)
	Close() error
}

// Open returns the store selected by cfg.Driver, or nil for "none".
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "", config.StorageNone:
		return nil, nil
	case config.StorageFile:
		fs, err := NewFileStore(cfg.Directory)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case config.StoragePostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("storage driver %q needs a dsn", cfg.Driver)
		}
		ps, err := NewPostgresStore(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return ps, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// FollowerPoints extracts the follower history from snapshots.
func FollowerPoints(snaps []Snapshot) []metrics.Point {
	points := make([]metrics.Point, 0, len(snaps))
	for _, s := range snaps {
		if s.Followers == nil {
			continue
		}
		points = append(points, metrics.Point{Date: s.TakenAt, Followers: *s.Followers})
	}
	return points
}

func trimToLimit(snaps []Snapshot, limit int) []Snapshot {
	if limit > 0 && len(snaps) > limit {
		return snaps[len(snaps)-limit:]
	}
	return snaps
}
