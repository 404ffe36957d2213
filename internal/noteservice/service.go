// Package noteservice answers read-only questions about notes and their
// publish state for the CLI and MCP surfaces.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/starford/gistpub/internal/apperr"
	"github.com/starford/gistpub/internal/checksum"
	"github.com/starford/gistpub/internal/gist"
	"github.com/starford/gistpub/internal/index"
	"github.com/starford/gistpub/internal/models"
	"github.com/starford/gistpub/internal/storage"
)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	Path        string         `json:"path"`
	Name        string         `json:"name"`
	Content     string         `json:"content"`
	Checksum    string         `json:"checksum"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Status      Status         `json:"status"`
	Backlinks   []string       `json:"backlinks"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	Path      string    `json:"path"`
	GistID    string    `json:"gist_id,omitempty"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Status is the publish state of one note.
type Status struct {
	Path      string `json:"path"`
	Published bool   `json:"published"`
	GistID    string `json:"gist_id,omitempty"`
	URL       string `json:"url,omitempty"`
	FileURL   string `json:"file_url,omitempty"`
}

// Service coordinates storage and index reads.
type Service struct {
	store storage.Provider
	vault *index.Vault
}

// NewService creates a new note service.
func NewService(store storage.Provider, vault *index.Vault) *Service {
	return &Service{store: store, vault: vault}
}

// GetNote reads a note from storage, refreshes its index entry and enriches
// it with publish state and backlinks.
func (s *Service) GetNote(_ context.Context, path string) (*NoteDetail, error) {
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	if err := s.vault.Refresh(path, data); err != nil {
		return nil, err
	}
	row, err := s.vault.DB().GetNote(path)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("noteservice: %s: %w", path, apperr.ErrNotFound)
	}
	bl, err := s.vault.Backlinks(path)
	if err != nil {
		return nil, err
	}

	var fm map[string]any
	if row.Frontmatter != nil {
		fm = row.Frontmatter.Values
	}
	return &NoteDetail{
		Path:        path,
		Name:        row.Name,
		Content:     string(data),
		Checksum:    checksum.Sum(data),
		Frontmatter: fm,
		Status:      statusOf(path, row.Frontmatter.GistID()),
		Backlinks:   nonNilSlice(bl),
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

// ListNotes returns indexed notes, optionally only the published ones.
func (s *Service) ListNotes(_ context.Context, publishedOnly bool) ([]NoteListItem, error) {
	var (
		rows []index.NoteRow
		err  error
	)
	if publishedOnly {
		rows, err = s.vault.Published()
	} else {
		rows, err = s.vault.DB().ListNotes(false)
	}
	if err != nil {
		return nil, err
	}
	items := make([]NoteListItem, len(rows))
	for i, r := range rows {
		items[i] = NoteListItem{
			Path:      r.Path,
			GistID:    r.GistID,
			Checksum:  r.Checksum,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, nil
}

// Status returns the publish state of the note at path as currently indexed.
func (s *Service) Status(_ context.Context, path string) (*Status, error) {
	fm, _, err := s.vault.FrontMatter(path)
	if err != nil {
		return nil, err
	}
	st := statusOf(path, fm.GistID())
	return &st, nil
}

// Backlinks returns all note paths that link to the given target.
func (s *Service) Backlinks(_ context.Context, target string) ([]string, error) {
	bl, err := s.vault.Backlinks(target)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(bl), nil
}

func (s *Service) read(path string) ([]byte, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("noteservice: %s: %w", path, apperr.ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

func statusOf(path, gistID string) Status {
	st := Status{Path: path}
	if gistID == "" {
		return st
	}
	url := gist.SnippetURL(gistID)
	st.Published = true
	st.GistID = gistID
	st.URL = url
	st.FileURL = url + "#" + gist.AnchorID(models.NewDocument(path).Name)
	return st
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
