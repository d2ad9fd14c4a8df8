// ABOUTME: Credential storage keyed by client ID in ~/.player2/auth.json
// ABOUTME: Written atomically with 0600 permissions; PLAYER2_API_KEY overrides stored keys

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
)

// AuthStore holds API keys per client ID.
type AuthStore struct {
	Keys map[string]string `json:"keys"` // client id -> api key

	path string
	mu   sync.Mutex
}

// LoadAuth reads the default auth file.
func LoadAuth() (*AuthStore, error) {
	return LoadAuthFrom(AuthFile())
}

// LoadAuthFrom reads path, or returns an empty store if it doesn't exist.
func LoadAuthFrom(path string) (*AuthStore, error) {
	store := &AuthStore{Keys: make(map[string]string), path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading auth file: %w", err)
	}
	if err := json.Unmarshal(data, store); err != nil {
		return nil, fmt.Errorf("parsing auth file: %w", err)
	}
	if store.Keys == nil {
		store.Keys = make(map[string]string)
	}
	return store, nil
}

// Path returns the file the store reads from and saves to.
func (a *AuthStore) Path() string {
	return a.path
}

// Save writes the store atomically with restricted permissions.
func (a *AuthStore) Save() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.path == "" {
		a.path = AuthFile()
	}
	if err := EnsureDir(filepath.Dir(a.path)); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling auth: %w", err)
	}

	if err := renameio.WriteFile(a.path, data, 0o600); err != nil {
		return fmt.Errorf("writing auth file: %w", err)
	}
	return nil
}

// GetKey returns the key for a client ID. PLAYER2_API_KEY, when set, wins.
func (a *AuthStore) GetKey(clientID string) string {
	if v := os.Getenv(EnvAPIKey); v != "" {
		return v
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Keys[clientID]
}

// SetKey stores a key for a client ID. An empty key deletes it.
func (a *AuthStore) SetKey(clientID, key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if key == "" {
		delete(a.Keys, clientID)
		return
	}
	a.Keys[clientID] = key
}

// DeleteKey removes the key for a client ID and reports whether one existed.
func (a *AuthStore) DeleteKey(clientID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.Keys[clientID]
	delete(a.Keys, clientID)
	return ok
}
