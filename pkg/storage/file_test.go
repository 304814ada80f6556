package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"goingviral/pkg/config"
	"goingviral/pkg/metrics"
)

func int64p(v int64) *int64 { return &v }

func TestFileStore(t *testing.T) {
	tempDir := t.TempDir()
	ctx := context.Background()

	store, err := NewFileStore(filepath.Join(tempDir, "snaps"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	// Empty history
	snaps, err := store.List(ctx, "natgeo", 0)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(snaps) != 0 {
		t.Errorf("Expected no snapshots, got %d", len(snaps))
	}

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, followers := range []int64{1200, 1000, 1100} {
		s := &Snapshot{
			Username:  "NatGeo",
			Variant:   "instagram-data",
			TakenAt:   base.Add(time.Duration(2-i) * 24 * time.Hour),
			Followers: int64p(followers),
			Posts:     []metrics.Post{{ID: "p1"}},
		}
		if err := store.Save(ctx, s); err != nil {
			t.Fatalf("Failed to save snapshot %d: %v", i, err)
		}
		if s.ID == "" {
			t.Error("Expected Save to assign an id")
		}
	}

	// No temp file left behind
	if _, err := os.Stat(filepath.Join(store.Dir(), "natgeo.json.tmp")); !os.IsNotExist(err) {
		t.Error("Expected temporary file to be renamed away")
	}

	snaps, err = store.List(ctx, "natgeo", 0)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(snaps) != 3 {
		t.Fatalf("Expected 3 snapshots, got %d", len(snaps))
	}
	if !snaps[0].TakenAt.Before(snaps[2].TakenAt) {
		t.Error("Expected snapshots oldest first")
	}

	points := FollowerPoints(snaps)
	deltas := metrics.Growth(points)
	if len(deltas) != 2 || deltas[0].Change != -100 || deltas[1].Change != 200 {
		t.Errorf("Unexpected growth %+v", deltas)
	}

	recent, err := store.List(ctx, "natgeo", 2)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(recent) != 2 || *recent[1].Followers != 1200 {
		t.Errorf("Expected the two newest snapshots, got %+v", recent)
	}
}

func TestFileStoreRejectsMissingUsername(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(context.Background(), &Snapshot{}); err == nil {
		t.Error("Expected an error for a snapshot without username")
	}
}

func TestFileStoreCorruptHistory(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.List(context.Background(), "broken", 0); err == nil {
		t.Error("Expected decode error for a corrupt history file")
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, config.StorageConfig{Driver: config.StorageNone})
	if err != nil || store != nil {
		t.Errorf("Expected nil store for driver none, got %v, %v", store, err)
	}

	store, err = Open(ctx, config.StorageConfig{Driver: config.StorageFile, Directory: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to open file store: %v", err)
	}
	if _, ok := store.(*FileStore); !ok {
		t.Errorf("Expected *FileStore, got %T", store)
	}

	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	store, err = Open(ctx, config.StorageConfig{Driver: config.StorageFile, Directory: filepath.Join(blocker, "snaps")})
	if err == nil {
		t.Error("Expected an error for a directory under a regular file")
	}
	if store != nil {
		t.Errorf("Expected a nil Store on error, got %#v", store)
	}

	if _, err := Open(ctx, config.StorageConfig{Driver: config.StoragePostgres}); err == nil {
		t.Error("Expected an error for postgres without dsn")
	}
	if _, err := Open(ctx, config.StorageConfig{Driver: "mongo"}); err == nil {
		t.Error("Expected an error for an unknown driver")
	}
}
