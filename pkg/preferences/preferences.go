// Package preferences persists the user's default directory.
package preferences

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/DeBrosOfficial/hdsview/pkg/config"
	"github.com/DeBrosOfficial/hdsview/pkg/errors"
)

// FileName is the default preference file inside the config directory.
const FileName = "default.yaml"

// Default is the stored default directory host and the identity it had
// when it was saved.
type Default struct {
	Host       string    `yaml:"host"`
	ServerName string    `yaml:"servername"`
	SavedAt    time.Time `yaml:"saved_at"`
}

// Store reads and writes the preference file.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore returns a store backed by path. An empty path resolves to
// default.yaml in the config directory.
func NewStore(path string) (*Store, error) {
	if path == "" {
		p, err := config.DefaultPath(FileName)
		if err != nil {
			return nil, err
		}
		path = p
	}
	return &Store{path: path}, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// SaveDefault records host and serverName as the default directory.
func (s *Store) SaveDefault(host, serverName string) error {
	host = strings.TrimSpace(host)
	if host == "" {
		return errors.NewValidationError("host", "must not be empty", host)
	}
	if serverName == "" {
		return errors.NewValidationError("servername", "must not be empty", serverName)
	}

	data, err := yaml.Marshal(Default{Host: host, ServerName: serverName, SavedAt: time.Now().UTC()})
	if err != nil {
		return errors.Wrap(err, "failed to encode preferences")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(s.path), err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// Load returns the stored default. It returns errors.ErrNotFound when
// nothing has been saved yet.
func (s *Store) Load() (Default, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default{}, errors.ErrNotFound
		}
		return Default{}, fmt.Errorf("failed to open preferences: %w", err)
	}
	defer f.Close()

	var d Default
	if err := config.DecodeStrict(f, &d); err != nil {
		return Default{}, fmt.Errorf("%s: %w", s.path, err)
	}
	if d.Host == "" {
		return Default{}, errors.ErrNotFound
	}
	return d, nil
}
