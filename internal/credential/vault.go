// Package credential caches the signed-in session token in the OS keyring
// so CLI invocations after `teamtrack login` stay authenticated.
package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/99designs/keyring"
)

const (
	serviceName = "teamtrack"
	sessionKey  = "session-token"
)

// ErrNoSession is returned by Load when nobody is logged in.
var ErrNoSession = errors.New("no saved session, run `teamtrack login`")

// Vault stores the session token.
type Vault struct {
	ring keyring.Keyring
}

// NewVault wraps an existing keyring. Tests pass keyring.NewArrayKeyring.
func NewVault(ring keyring.Keyring) *Vault {
	return &Vault{ring: ring}
}

// Open opens the system keyring, falling back to an encrypted file under
// dir when no native backend is available.
func Open(dir string) (*Vault, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".config", serviceName, "credentials")
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  dir,
		FilePasswordFunc:         keyring.FixedStringPrompt(serviceName + "-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return NewVault(ring), nil
}

// Save stores the session token, replacing any previous one.
func (v *Vault) Save(token string) error {
	err := v.ring.Set(keyring.Item{
		Key:   sessionKey,
		Data:  []byte(token),
		Label: "teamtrack session",
	})
	if err != nil {
		return fmt.Errorf("saving session token: %w", err)
	}
	return nil
}

// Load returns the saved session token or ErrNoSession.
func (v *Vault) Load() (string, error) {
	item, err := v.ring.Get(sessionKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("loading session token: %w", err)
	}
	return string(item.Data), nil
}

// Clear removes the session token. Clearing an empty vault is not an error.
func (v *Vault) Clear() error {
	err := v.ring.Remove(sessionKey)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("clearing session token: %w", err)
	}
	return nil
}
