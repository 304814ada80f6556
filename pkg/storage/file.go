package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileStore keeps one JSON history file per account in a directory.
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory snapshots are written to.
func (f *FileStore) Dir() string {
	return f.dir
}

func (f *FileStore) path(username string) string {
	name := strings.ToLower(filepath.Base(username))
	return filepath.Join(f.dir, name+".json")
}

// Save appends s to the account's history.
func (f *FileStore) Save(ctx context.Context, s *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.Username == "" {
		return fmt.Errorf("snapshot has no username")
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.TakenAt.IsZero() {
		s.TakenAt = time.Now().UTC()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	history, err := f.read(s.Username)
	if err != nil {
		return err
	}
	history = append(history, *s)
	sort.SliceStable(history, func(i, j int) bool { return history[i].TakenAt.Before(history[j].TakenAt) })

	return f.write(s.Username, history)
}

// List returns the account's snapshots, oldest first.
func (f *FileStore) List(ctx context.Context, username string, limit int) ([]Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	history, err := f.read(username)
	if err != nil {
		return nil, err
	}
	return trimToLimit(history, limit), nil
}

// Close is a no-op.
func (f *FileStore) Close() error {
	return nil
}

func (f *FileStore) read(username string) ([]Snapshot, error) {
	data, err := os.ReadFile(f.path(username))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshots: %w", err)
	}

	var history []Snapshot
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("failed to decode snapshots: %w", err)
	}
	return history, nil
}

// write replaces the history file through a temporary file and rename.
func (f *FileStore) write(username string, history []Snapshot) error {
	target := f.path(username)
	tempFile := target + ".tmp"

	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	err = enc.Encode(history)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to encode snapshots: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, target); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
