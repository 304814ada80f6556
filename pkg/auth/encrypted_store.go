package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/argon2"
)

// PassphraseEnv overrides the generated passphrase of the encrypted store.
const PassphraseEnv = "GOINGVIRAL_PASSPHRASE"

// argon2id parameters for deriving the vault key.
const (
	kdfTime    = 1
	kdfMemory  = 64 * 1024
	kdfThreads = 4
	keyLen     = 32
	saltLen    = 16
)

// vault is the on-disk envelope. Sealed holds nonce||ciphertext of the
// JSON-encoded profile map.
type vault struct {
	Version  int       `json:"version"`
	KDF      string    `json:"kdf"`
	Salt     []byte    `json:"salt"`
	Sealed   []byte    `json:"sealed"`
	Modified time.Time `json:"modified"`
}

// EncryptedFileStore keeps credentials in one AES-GCM sealed file keyed
// by an argon2id-derived key.
type EncryptedFileStore struct {
	path       string
	passphrase []byte
	mu         sync.RWMutex
}

// NewEncryptedFileStore opens the store at path. An empty passphrase is
// read from GOINGVIRAL_PASSPHRASE, or from a .passphrase file next to the
// store, generating one on first use.
func NewEncryptedFileStore(path, passphrase string) (*EncryptedFileStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create credential dir: %w", err)
	}
	if passphrase == "" {
		p, err := loadPassphrase(filepath.Join(dir, ".passphrase"))
		if err != nil {
			return nil, err
		}
		passphrase = p
	}
	return &EncryptedFileStore{path: path, passphrase: []byte(passphrase)}, nil
}

// Path returns the store's file.
func (e *EncryptedFileStore) Path() string {
	return e.path
}

// Store saves cred under its profile
func (e *EncryptedFileStore) Store(cred *Credential) error {
	if cred == nil || cred.Profile == "" {
		return ErrInvalidCredentials
	}
	return e.update(func(creds map[string]Credential) error {
		creds[cred.Profile] = *cred
		return nil
	})
}

// Retrieve returns the credential of profile
func (e *EncryptedFileStore) Retrieve(profile string) (*Credential, error) {
	if profile == "" {
		return nil, ErrInvalidCredentials
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	creds, err := e.open()
	if err != nil {
		return nil, err
	}
	c, ok := creds[profile]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &c, nil
}

// List returns every stored credential
func (e *EncryptedFileStore) List() ([]*Credential, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	creds, err := e.open()
	if err != nil {
		return nil, err
	}
	out := make([]*Credential, 0, len(creds))
	for _, c := range creds {
		c := c
		out = append(out, &c)
	}
	return out, nil
}

// Delete removes profile. The file goes away with the last credential.
func (e *EncryptedFileStore) Delete(profile string) error {
	if profile == "" {
		return ErrInvalidCredentials
	}
	return e.update(func(creds map[string]Credential) error {
		if _, ok := creds[profile]; !ok {
			return ErrCredentialsNotFound
		}
		delete(creds, profile)
		return nil
	})
}

// Exists reports whether profile has a credential
func (e *EncryptedFileStore) Exists(profile string) bool {
	_, err := e.Retrieve(profile)
	return err == nil
}

// update applies fn to the decrypted profiles and writes the result back.
func (e *EncryptedFileStore) update(fn func(map[string]Credential) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	creds, err := e.open()
	if err != nil {
		return err
	}
	if err := fn(creds); err != nil {
		return err
	}
	if len(creds) == 0 {
		if err := os.Remove(e.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	return e.seal(creds)
}

// open decrypts the vault. A missing file is an empty vault.
func (e *EncryptedFileStore) open() (map[string]Credential, error) {
	creds := make(map[string]Credential)

	b, err := os.ReadFile(e.path)
	if errors.Is(err, fs.ErrNotExist) {
		return creds, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credential vault: %w", err)
	}

	var v vault
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("parse credential vault: %w", err)
	}
	gcm, err := newGCM(e.key(v.Salt))
	if err != nil {
		return nil, err
	}
	n := gcm.NonceSize()
	if len(v.Sealed) < n {
		return nil, errors.New("credential vault is truncated")
	}
	plain, err := gcm.Open(nil, v.Sealed[:n], v.Sealed[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("unlock credential vault: %w", err)
	}
	if err := json.Unmarshal(plain, &creds); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return creds, nil
}

// seal encrypts creds under a fresh salt and nonce and replaces the file.
func (e *EncryptedFileStore) seal(creds map[string]Credential) error {
	plain, err := json.Marshal(creds)
	if err != nil {
		return err
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return err
	}
	gcm, err := newGCM(e.key(salt))
	if err != nil {
		return err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return err
	}

	b, err := json.MarshalIndent(vault{
		Version:  2,
		KDF:      "argon2id",
		Salt:     salt,
		Sealed:   gcm.Seal(nonce, nonce, plain, nil),
		Modified: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(e.path), ".credentials-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), e.path)
}

func (e *EncryptedFileStore) key(salt []byte) []byte {
	return argon2.IDKey(e.passphrase, salt, kdfTime, kdfMemory, kdfThreads, keyLen)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func loadPassphrase(path string) (string, error) {
	if p := os.Getenv(PassphraseEnv); p != "" {
		return p, nil
	}
	if b, err := os.ReadFile(path); err == nil && len(b) > 0 {
		return string(b), nil
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate passphrase: %w", err)
	}
	p := fmt.Sprintf("%x", raw)
	if err := os.WriteFile(path, []byte(p), 0o600); err != nil {
		return "", fmt.Errorf("save passphrase: %w", err)
	}
	return p, nil
}
