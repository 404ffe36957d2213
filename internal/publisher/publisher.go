// Package publisher uploads a note to a gist and records the gist id in the
// note's front matter.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/gistpub/internal/apperr"
	"github.com/starford/gistpub/internal/gist"
	"github.com/starford/gistpub/internal/header"
	"github.com/starford/gistpub/internal/models"
	"github.com/starford/gistpub/internal/storage"
	"github.com/starford/gistpub/internal/transform"
)

// Index is the metadata index the publisher reads from and refreshes.
type Index interface {
	transform.MetadataIndex
	Refresh(path string, data []byte) error
}

// TokenSource returns the current GitHub token, or "" if none is configured.
type TokenSource interface {
	Token() (string, error)
}

// ClientFactory builds a gist client for a token. It is called on every
// publish so a changed token takes effect immediately.
type ClientFactory func(token string) (gist.Service, error)

// Buffer is the live content of the note being published.
type Buffer interface {
	Replace(content string) error
}

// Result describes a completed publish.
type Result struct {
	Path    string `json:"path"`
	GistID  string `json:"gist_id"`
	Created bool   `json:"created"`
	URL     string `json:"url"`
}

// Service publishes notes. Publishes are serialized.
type Service struct {
	mu        sync.Mutex
	idx       Index
	store     storage.Provider
	tokens    TokenSource
	newClient ClientFactory
	logger    *slog.Logger
}

// New creates a publisher.
func New(idx Index, store storage.Provider, tokens TokenSource, newClient ClientFactory, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		idx:       idx,
		store:     store,
		tokens:    tokens,
		newClient: newClient,
		logger:    logger,
	}
}

// PublishFile publishes the note at path, writing any header change back to
// the file.
func (s *Service) PublishFile(ctx context.Context, path string) (*Result, error) {
	return s.Publish(ctx, path, FileBuffer(s.store, path))
}

// Publish uploads the note at path. A note with a gist_id updates that gist;
// otherwise a new private gist is created and its id is written into the
// note through buf. Remote failures leave the note untouched.
func (s *Service) Publish(ctx context.Context, path string, buf Buffer) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("publisher: token: %w", err)
	}
	if token == "" {
		return nil, apperr.ErrNoCredential
	}
	if path == "" {
		return nil, apperr.ErrNoActiveDocument
	}
	if !s.store.Exists(path) {
		return nil, fmt.Errorf("publisher: %s: %w", path, apperr.ErrNotFound)
	}

	data, err := s.store.Read(path)
	if err != nil {
		return nil, fmt.Errorf("publisher: %w", err)
	}
	if err := s.idx.Refresh(path, data); err != nil {
		return nil, fmt.Errorf("publisher: refresh %s: %w", path, err)
	}
	content := string(data)
	doc := models.NewDocument(path)

	fm, hasHeader, err := header.Extract(s.idx, doc)
	if err != nil {
		return nil, fmt.Errorf("publisher: %w", err)
	}

	uploadable, err := transform.Transform(s.idx, doc, content)
	if err != nil {
		return nil, fmt.Errorf("publisher: %w", err)
	}
	if hasHeader {
		uploadable = header.Strip(uploadable, fm)
	}

	client, err := s.newClient(token)
	if err != nil {
		return nil, fmt.Errorf("publisher: client: %w", err)
	}
	files := gist.Files{doc.Name: {Content: uploadable}}

	if id := fm.GistID(); id != "" {
		if err := client.Update(ctx, id, files, false); err != nil {
			return nil, err
		}
		s.logger.Info("gist updated",
			slog.String("path", path),
			slog.String("gist_id", id))
		return &Result{Path: path, GistID: id, URL: gist.SnippetURL(id)}, nil
	}

	id, err := client.Create(ctx, files, false)
	if err != nil {
		return nil, err
	}
	s.logger.Info("gist created",
		slog.String("path", path),
		slog.String("gist_id", id))

	var updated string
	if hasHeader {
		updated = header.InsertGistID(content, fm, id)
	} else {
		updated = header.Synthesize(content, id)
	}
	if err := buf.Replace(updated); err != nil {
		return nil, fmt.Errorf("publisher: record gist id in %s: %w", path, err)
	}
	if err := s.idx.Refresh(path, []byte(updated)); err != nil {
		s.logger.Warn("reindex after publish failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}

	return &Result{Path: path, GistID: id, Created: true, URL: gist.SnippetURL(id)}, nil
}

type fileBuffer struct {
	store storage.Provider
	path  string
}

// FileBuffer returns a Buffer that atomically rewrites path in store.
func FileBuffer(store storage.Provider, path string) Buffer {
	return &fileBuffer{store: store, path: path}
}

func (b *fileBuffer) Replace(content string) error {
	return b.store.Write(b.path, []byte(content))
}

// Notice returns the user-facing message for the outcome of a publish.
func Notice(err error) string {
	if err == nil {
		return "Created successfully!"
	}
	if errors.Is(err, apperr.ErrNoCredential) {
		return "No Github token"
	}
	var apiErr *gist.APIError
	if errors.As(err, &apiErr) {
		return "Github API error: " + apiErr.Error()
	}
	return err.Error()
}
