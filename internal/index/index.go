package index

import (
	"fmt"
	"time"

	"github.com/starford/gistpub/internal/apperr"
	"github.com/starford/gistpub/internal/checksum"
	"github.com/starford/gistpub/internal/models"
	"github.com/starford/gistpub/internal/parser"
	"github.com/starford/gistpub/internal/storage"
)

// Vault answers metadata queries about one vault. Parsed data comes from the
// SQLite index; file existence for non-note link targets comes from the store.
type Vault struct {
	db    *DB
	store storage.Provider
}

// NewVault binds an index to the store it was built from.
func NewVault(db *DB, store storage.Provider) *Vault {
	return &Vault{db: db, store: store}
}

// DB returns the underlying index.
func (v *Vault) DB() *DB {
	return v.db
}

// Refresh parses data and stores it as the current state of path.
func (v *Vault) Refresh(path string, data []byte) error {
	return indexFile(v.db, path, data)
}

// Document returns the note at path, or false if path is not an indexed note.
func (v *Vault) Document(path string) (models.Document, bool, error) {
	n, err := v.db.GetNote(path)
	if err != nil {
		return models.Document{}, false, err
	}
	if n == nil {
		return models.Document{}, false, nil
	}
	return models.Document{Path: n.Path, Name: n.Name}, true, nil
}

// FrontMatter returns the parsed header of path and whether one exists.
func (v *Vault) FrontMatter(path string) (*models.FrontMatter, bool, error) {
	n, err := v.db.GetNote(path)
	if err != nil {
		return nil, false, err
	}
	if n == nil {
		return nil, false, fmt.Errorf("index: frontmatter %s: %w", path, apperr.ErrNotFound)
	}
	return n.Frontmatter, n.Frontmatter != nil, nil
}

// OutboundLinks resolves the wikilinks of path against the current vault.
// Unresolvable targets are dropped; targets resolving to the same path are
// merged, keeping the position of the first one.
func (v *Vault) OutboundLinks(path string) ([]models.OutboundLink, error) {
	raw, err := v.db.Links(path)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	r, err := v.resolver()
	if err != nil {
		return nil, err
	}

	pos := make(map[string]int, len(raw))
	var out []models.OutboundLink
	for _, l := range raw {
		target, ok := r.resolve(l.Target, path)
		if !ok {
			continue
		}
		if i, seen := pos[target]; seen {
			out[i].Count += l.Occurrences
			continue
		}
		pos[target] = len(out)
		out = append(out, models.OutboundLink{Path: target, Count: l.Occurrences})
	}
	return out, nil
}

// LinkText returns the wikilink text the vault uses for the note at path.
func (v *Vault) LinkText(path string) (string, error) {
	r, err := v.resolver()
	if err != nil {
		return "", err
	}
	return r.linkText(path), nil
}

// Backlinks returns the notes whose wikilinks resolve to target.
func (v *Vault) Backlinks(target string) ([]string, error) {
	notes, err := v.db.ListNotes(false)
	if err != nil {
		return nil, err
	}
	r, err := v.resolver()
	if err != nil {
		return nil, err
	}

	var out []string
	for _, n := range notes {
		links, err := v.db.Links(n.Path)
		if err != nil {
			return nil, err
		}
		for _, l := range links {
			if p, ok := r.resolve(l.Target, n.Path); ok && p == target {
				out = append(out, n.Path)
				break
			}
		}
	}
	return out, nil
}

// Published returns every note that carries a gist_id.
func (v *Vault) Published() ([]NoteRow, error) {
	return v.db.ListNotes(true)
}

func (v *Vault) resolver() (*resolver, error) {
	paths, err := v.db.AllPaths()
	if err != nil {
		return nil, err
	}
	var exists func(string) bool
	if v.store != nil {
		exists = v.store.Exists
	}
	return newResolver(paths, exists), nil
}

// indexFile parses data and upserts it into the DB.
func indexFile(db *DB, path string, data []byte) error {
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}
	doc := models.NewDocument(path)

	row := NoteRow{
		Path:        path,
		Name:        doc.Name,
		Checksum:    checksum.Sum(data),
		GistID:      res.Frontmatter.GistID(),
		Frontmatter: res.Frontmatter,
		UpdatedAt:   time.Now(),
	}
	return db.UpsertNote(row, res.Links)
}
