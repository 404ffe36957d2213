// Package credential persists the GitHub token used for publishing.
package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const fileMode = 0o600

type settings struct {
	Token string `yaml:"token"`
}

// Store keeps the token in a YAML file. When the file holds no token the
// fallback (usually github.token from the config) is used.
type Store struct {
	mu       sync.Mutex
	path     string
	fallback string
}

// NewStore returns a Store backed by the file at path.
func NewStore(path, fallback string) *Store {
	return &Store{path: path, fallback: fallback}
}

// Path returns the location of the credential file.
func (s *Store) Path() string {
	return s.path
}

// Token returns the stored token, or the fallback when none is stored.
func (s *Store) Token() (string, error) {
	stored, err := s.Load()
	if err != nil {
		return "", err
	}
	if stored != "" {
		return stored, nil
	}
	return s.fallback, nil
}

// Load returns the token saved in the file. A missing file yields "".
func (s *Store) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("credential: read %s: %w", s.path, err)
	}
	var st settings
	if err := yaml.Unmarshal(data, &st); err != nil {
		return "", fmt.Errorf("credential: parse %s: %w", s.path, err)
	}
	return strings.TrimSpace(st.Token), nil
}

// Save writes token to the file, replacing any previous value.
func (s *Store) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := yaml.Marshal(settings{Token: strings.TrimSpace(token)})
	if err != nil {
		return fmt.Errorf("credential: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("credential: mkdir: %w", err)
	}
	if err := os.WriteFile(s.path, data, fileMode); err != nil {
		return fmt.Errorf("credential: write %s: %w", s.path, err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(s.path, fileMode); err != nil {
		return fmt.Errorf("credential: chmod %s: %w", s.path, err)
	}
	return nil
}

// Clear stores an empty token.
func (s *Store) Clear() error {
	return s.Save("")
}

// Mask hides all but the last four characters of token.
func Mask(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", len(token)-4) + token[len(token)-4:]
}
