package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"goingviral/pkg/apify"
	"goingviral/pkg/logger"
)

const formatVersion = 1

// Checkpoint records a launched run so a later fetch can re-attach to it
// instead of paying for a new one.
type Checkpoint struct {
	Username   string          `json:"username"`
	Variant    string          `json:"variant"`
	Handle     apify.JobHandle `json:"handle"`
	LastStatus string          `json:"last_status,omitempty"`
	Checks     int             `json:"checks"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Version    int             `json:"version"`
}

// Manager owns the checkpoint file of one username and variant.
type Manager struct {
	path string
	log  logger.Logger
	now  func() time.Time
}

// NewManager returns the manager for variant and username, creating dir if
// needed. An empty dir means DefaultDir.
func NewManager(dir, variant, username string) (*Manager, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}

	file := variant + "." + strings.ToLower(filepath.Base(username)) + ".checkpoint.json"
	return &Manager{
		path: filepath.Join(dir, file),
		log:  logger.GetLogger(),
		now:  time.Now,
	}, nil
}

// Path returns the checkpoint file location
func (m *Manager) Path() string {
	return m.path
}

// Create writes the checkpoint of a freshly launched run.
func (m *Manager) Create(username, variant string, handle apify.JobHandle) (*Checkpoint, error) {
	t := m.now()
	cp := &Checkpoint{
		Username:  username,
		Variant:   variant,
		Handle:    handle,
		CreatedAt: t,
		UpdatedAt: t,
		Version:   formatVersion,
	}
	if err := m.Save(cp); err != nil {
		return nil, err
	}

	m.log.InfoWithFields("checkpoint created", map[string]interface{}{
		"username": username,
		"run_id":   handle.JobID,
		"path":     m.path,
	})
	return cp, nil
}

// Load reads the checkpoint. A missing file is not an error: both return
// values are nil.
func (m *Manager) Load() (*Checkpoint, error) {
	b, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(b, &cp); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", m.path, err)
	}
	if cp.Handle.JobID == "" {
		return nil, fmt.Errorf("checkpoint %s has no run id", m.path)
	}

	m.log.InfoWithFields("checkpoint loaded", map[string]interface{}{
		"username": cp.Username,
		"run_id":   cp.Handle.JobID,
		"checks":   cp.Checks,
		"age":      m.now().Sub(cp.CreatedAt).Round(time.Second).String(),
	})
	return &cp, nil
}

// Save stamps cp and replaces the file in one rename, so a crash leaves
// either the old checkpoint or the new one.
func (m *Manager) Save(cp *Checkpoint) error {
	cp.UpdatedAt = m.now()
	b, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := writeFileAtomic(m.path, b); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	m.log.DebugWithFields("checkpoint saved", map[string]interface{}{
		"run_id": cp.Handle.JobID,
		"checks": cp.Checks,
		"status": cp.LastStatus,
	})
	return nil
}

// RecordCheck stores the outcome of one status check
func (m *Manager) RecordCheck(cp *Checkpoint, status string) error {
	cp.LastStatus = status
	cp.Checks++
	return m.Save(cp)
}

// Delete removes the checkpoint. Deleting a missing checkpoint succeeds.
func (m *Manager) Delete() error {
	err := os.Remove(m.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	m.log.Debug("checkpoint deleted")
	return nil
}

// Exists reports whether a checkpoint file is present
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// DefaultDir is the per-user checkpoint directory: under Application
// Support on macOS, %APPDATA% on Windows and $XDG_DATA_HOME (or
// ~/.local/share) elsewhere.
func DefaultDir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("APPDATA")
		if base == "" {
			return "", errors.New("APPDATA is not set")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, "Library", "Application Support")
	default:
		base = os.Getenv("XDG_DATA_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			base = filepath.Join(home, ".local", "share")
		}
	}
	return filepath.Join(base, "goingviral", "checkpoints"), nil
}
