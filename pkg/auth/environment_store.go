package auth

import (
	"os"
	"time"
)

// Environment variables read by EnvironmentStore, in order of preference.
var tokenEnvVars = []string{"APIFY_API_KEY", "APIFY_API_TOKEN"}

// AnonKeyEnv holds the identity provider's public key.
const AnonKeyEnv = "SUPABASE_ANON_KEY"

// EnvironmentStore implements CredentialStore on top of environment
// variables. It is read-only and reports the same credential for every
// profile.
type EnvironmentStore struct {
	getenv func(string) string
}

// NewEnvironmentStore creates a store reading the process environment
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{getenv: os.Getenv}
}

func (e *EnvironmentStore) token() string {
	for _, key := range tokenEnvVars {
		if v := e.getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(cred *Credential) error {
	return ErrStoreUnavailable
}

// Retrieve builds a credential from the environment
func (e *EnvironmentStore) Retrieve(profile string) (*Credential, error) {
	token := e.token()
	if token == "" {
		return nil, ErrCredentialsNotFound
	}
	if profile == "" {
		profile = DefaultProfile
	}
	return &Credential{
		Profile:  profile,
		APIToken: token,
		AnonKey:  e.getenv(AnonKeyEnv),
		// Older than anything stored so stored profiles win in List.
		LastModified: time.Time{},
	}, nil
}

// List returns the environment credential, if any
func (e *EnvironmentStore) List() ([]*Credential, error) {
	cred, err := e.Retrieve("")
	if err != nil {
		return []*Credential{}, nil
	}
	return []*Credential{cred}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(profile string) error {
	return ErrStoreUnavailable
}

// Exists reports whether a token is set in the environment
func (e *EnvironmentStore) Exists(profile string) bool {
	return e.token() != ""
}
