// Package credentials persists the CLI's signed-in identity between runs.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Credentials is the stored identity: the bearer token presented upstream and
// the user id it belongs to.
type Credentials struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

type Store struct {
	path string
}

// NewStore returns a store backed by the JSON file at path.
func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("credentials path is required")
	}
	return &Store{path: path}, nil
}

// Load reads the saved credentials. A missing file means signed out, not an
// error.
func (s *Store) Load() (Credentials, bool, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Credentials{}, false, nil
		}
		return Credentials{}, false, fmt.Errorf("read credentials: %w", err)
	}
	var creds Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return Credentials{}, false, fmt.Errorf("decode credentials: %w", err)
	}
	if creds.Token == "" || creds.UserID == "" {
		return Credentials{}, false, nil
	}
	return creds, true, nil
}

// Save writes the credentials, readable by the owning user only.
func (s *Store) Save(creds Credentials) error {
	if strings.TrimSpace(creds.Token) == "" {
		return errors.New("token is required")
	}
	if strings.TrimSpace(creds.UserID) == "" {
		return errors.New("user id is required")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("ensure credentials dir: %w", err)
	}
	raw, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// Clear removes the saved credentials. Clearing an absent file is a no-op.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}
