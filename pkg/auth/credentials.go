package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

// DefaultProfile names the credential used when none is given.
const DefaultProfile = "default"

// Credential holds the service tokens of one profile
type Credential struct {
	Profile      string    `json:"profile"`
	APIToken     string    `json:"api_token"`
	AnonKey      string    `json:"anon_key,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves the credential of a profile
	Store(cred *Credential) error

	// Retrieve gets the credential of a profile
	Retrieve(profile string) (*Credential, error)

	// List returns all stored credentials
	List() ([]*Credential, error)

	// Delete removes the credential of a profile
	Delete(profile string) error

	// Exists checks if a profile has a credential
	Exists(profile string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a credential manager backed by the system keychain
// when available, an encrypted file, and the environment.
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"), "")
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a Manager over the given stores, tried in order.
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// ValidateToken rejects values that cannot be an API token.
func ValidateToken(token string) error {
	switch {
	case token == "":
		return errors.New("API token is required")
	case strings.ContainsAny(token, " \t\r\n"):
		return errors.New("API token must not contain whitespace")
	case len(token) < 16:
		return errors.New("API token is too short")
	}
	return nil
}

// Store saves cred in the first store that accepts it
func (m *Manager) Store(cred *Credential) error {
	if cred == nil {
		return ErrInvalidCredentials
	}
	if cred.Profile == "" {
		cred.Profile = DefaultProfile
	}
	if err := ValidateToken(cred.APIToken); err != nil {
		return err
	}

	cred.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(cred)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// Retrieve gets a profile's credential from the first store that has it
func (m *Manager) Retrieve(profile string) (*Credential, error) {
	if profile == "" {
		profile = DefaultProfile
	}
	for _, store := range m.stores {
		if cred, err := store.Retrieve(profile); err == nil && cred != nil {
			return cred, nil
		}
	}
	return nil, fmt.Errorf("%w for profile: %s", ErrCredentialsNotFound, profile)
}

// ResolveToken picks the API token to use. An explicit token wins,
// then the stored profile. The second value names the source.
func (m *Manager) ResolveToken(explicit, profile string) (string, string, error) {
	if explicit != "" {
		return explicit, "config", nil
	}
	cred, err := m.Retrieve(profile)
	if err != nil {
		return "", "", err
	}
	return cred.APIToken, "store", nil
}

// List returns all credentials across stores, newest version per profile,
// sorted by profile name
func (m *Manager) List() ([]*Credential, error) {
	byProfile := make(map[string]*Credential)

	for _, store := range m.stores {
		creds, err := store.List()
		if err != nil {
			continue
		}
		for _, cred := range creds {
			if existing, ok := byProfile[cred.Profile]; !ok || cred.LastModified.After(existing.LastModified) {
				byProfile[cred.Profile] = cred
			}
		}
	}

	result := make([]*Credential, 0, len(byProfile))
	for _, cred := range byProfile {
		result = append(result, cred)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Profile < result[j].Profile })
	return result, nil
}

// Delete removes a profile from all stores
func (m *Manager) Delete(profile string) error {
	if profile == "" {
		profile = DefaultProfile
	}

	var deleted bool
	var lastErr error
	for _, store := range m.stores {
		if err := store.Delete(profile); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil && !errors.Is(lastErr, ErrCredentialsNotFound) && !errors.Is(lastErr, ErrStoreUnavailable) {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w for profile: %s", ErrCredentialsNotFound, profile)
	}
	return nil
}

// DeleteAll removes every stored credential
func (m *Manager) DeleteAll() error {
	creds, err := m.List()
	if err != nil {
		return err
	}
	for _, cred := range creds {
		_ = m.Delete(cred.Profile)
	}
	return nil
}

// ConfigDir returns the per-user goingviral directory, creating it if needed
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "goingviral")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "goingviral")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "goingviral")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "goingviral")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// SanitizeCredential returns a copy of cred with its secrets masked
func SanitizeCredential(cred *Credential) *Credential {
	if cred == nil {
		return nil
	}
	out := *cred
	out.APIToken = MaskString(cred.APIToken)
	if cred.AnonKey != "" {
		out.AnonKey = MaskString(cred.AnonKey)
	}
	return &out
}

// MaskString masks all but the first 4 and last 4 characters of a string
func MaskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
