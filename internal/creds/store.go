// Package creds persists the session credentials of one identity.
package creds

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vburojevic/lurk/internal/domain"
)

// Store is the durable key/value persistence for session credentials.
type Store interface {
	Load() (domain.Credentials, error)
	Save(domain.Credentials) error
	Destroy() error
}

const credsFile = "creds.json"

// FileStore keeps credentials in a single JSON file inside a directory that
// is owned entirely by one identity.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. The directory is created on
// first save.
func NewFileStore(dir string) (*FileStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("session directory is required")
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the identity directory.
func (s *FileStore) Dir() string { return s.dir }

// Path returns the credentials file path.
func (s *FileStore) Path() string { return filepath.Join(s.dir, credsFile) }

// Exists reports whether credentials have been persisted.
func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.Path())
	return err == nil
}

// Load reads the persisted credentials. A missing file yields a fresh,
// unregistered identity.
func (s *FileStore) Load() (domain.Credentials, error) {
	b, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return domain.NewCredentials(), nil
		}
		return domain.Credentials{}, fmt.Errorf("read credentials: %w", err)
	}
	var c domain.Credentials
	if err := json.Unmarshal(b, &c); err != nil {
		return domain.Credentials{}, fmt.Errorf("decode credentials %s: %w", s.Path(), err)
	}
	return c, nil
}

// Save overwrites the persisted credentials. The write goes to a temp file
// that is synced and renamed into place, so a crash leaves either the old or
// the new state.
func (s *FileStore) Save(c domain.Credentials) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	b = append(b, '\n')

	tmp, err := os.CreateTemp(s.dir, credsFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp credentials: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close credentials: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path()); err != nil {
		return fmt.Errorf("replace credentials: %w", err)
	}
	return nil
}

// Destroy removes the whole identity directory. Destroying an identity that
// does not exist is not an error.
func (s *FileStore) Destroy() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("remove session directory: %w", err)
	}
	return nil
}
