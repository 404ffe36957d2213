package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/gistpub/internal/models"
	"github.com/starford/gistpub/internal/parser"
)

// NoteRow represents a row in the notes table.
type NoteRow struct {
	Path        string
	Name        string
	Checksum    string
	GistID      string
	Frontmatter *models.FrontMatter
	UpdatedAt   time.Time
}

// RawLink is a stored, unresolved wikilink target of a note.
type RawLink struct {
	Target      string
	Occurrences int
}

// UpsertNote inserts or replaces a note and its links within a transaction.
func (db *DB) UpsertNote(n NoteRow, links []parser.Link) error {
	var fmJSON sql.NullString
	fmEnd := -1
	if n.Frontmatter != nil {
		raw, err := json.Marshal(jsonSafeFrontMatter(n.Frontmatter))
		if err != nil {
			return fmt.Errorf("index: encode frontmatter: %w", err)
		}
		fmJSON = sql.NullString{String: string(raw), Valid: true}
		fmEnd = n.Frontmatter.EndLine
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO notes (path, name, checksum, gist_id, frontmatter, frontmatter_end, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name            = excluded.name,
			checksum        = excluded.checksum,
			gist_id         = excluded.gist_id,
			frontmatter     = excluded.frontmatter,
			frontmatter_end = excluded.frontmatter_end,
			updated_at      = excluded.updated_at
	`, n.Path, n.Name, n.Checksum, n.GistID, fmJSON, fmEnd, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	// Replace links: delete old then bulk insert.
	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, n.Path); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target, ordinal, occurrences) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for i, l := range links {
			if _, err := stmt.Exec(n.Path, l.Target, i, l.Count); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteNote removes a note and its outgoing links.
func (db *DB) DeleteNote(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, path)
	_, _ = tx.Exec(`DELETE FROM notes WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a note, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM notes WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// GetNote returns a single indexed note, or nil if it is not indexed.
func (db *DB) GetNote(path string) (*NoteRow, error) {
	row := db.conn.QueryRow(`
		SELECT path, name, checksum, gist_id, frontmatter, frontmatter_end, updated_at
		FROM notes WHERE path = ?
	`, path)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: get note: %w", err)
	}
	return n, nil
}

// ListNotes returns every indexed note ordered by path. When publishedOnly is
// set, only notes carrying a gist_id are returned.
func (db *DB) ListNotes(publishedOnly bool) ([]NoteRow, error) {
	query := `SELECT path, name, checksum, gist_id, frontmatter, frontmatter_end, updated_at FROM notes`
	if publishedOnly {
		query += ` WHERE gist_id != ''`
	}
	query += ` ORDER BY path`

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("index: list notes: %w", err)
	}
	defer rows.Close()

	var out []NoteRow
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("index: scan note: %w", err)
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// Links returns the raw wikilink targets of source in first-occurrence order.
func (db *DB) Links(source string) ([]RawLink, error) {
	rows, err := db.conn.Query(`SELECT target, occurrences FROM links WHERE source = ? ORDER BY ordinal`, source)
	if err != nil {
		return nil, fmt.Errorf("index: links: %w", err)
	}
	defer rows.Close()

	var out []RawLink
	for rows.Next() {
		var l RawLink
		if err := rows.Scan(&l.Target, &l.Occurrences); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// AllPaths returns every indexed note path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// AllChecksums returns path → checksum for every indexed note.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(s rowScanner) (*NoteRow, error) {
	var (
		n      NoteRow
		fmJSON sql.NullString
		fmEnd  int
	)
	if err := s.Scan(&n.Path, &n.Name, &n.Checksum, &n.GistID, &fmJSON, &fmEnd, &n.UpdatedAt); err != nil {
		return nil, err
	}
	if fmJSON.Valid {
		var fm models.FrontMatter
		if err := json.Unmarshal([]byte(fmJSON.String), &fm); err != nil {
			return nil, fmt.Errorf("decode frontmatter of %s: %w", n.Path, err)
		}
		fm.EndLine = fmEnd
		if fm.Values == nil {
			fm.Values = map[string]any{}
		}
		n.Frontmatter = &fm
	}
	return &n, nil
}

// jsonSafeFrontMatter converts YAML maps with non-string keys so the header
// can be stored as JSON.
func jsonSafeFrontMatter(fm *models.FrontMatter) *models.FrontMatter {
	values := make(map[string]any, len(fm.Values))
	for k, v := range fm.Values {
		values[k] = jsonSafe(v)
	}
	return &models.FrontMatter{Keys: fm.Keys, Values: values, EndLine: fm.EndLine}
}

func jsonSafe(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(vv))
		for k, val := range vv {
			out[k] = jsonSafe(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(vv))
		for k, val := range vv {
			out[fmt.Sprint(k)] = jsonSafe(val)
		}
		return out
	case []any:
		out := make([]any, len(vv))
		for i, val := range vv {
			out[i] = jsonSafe(val)
		}
		return out
	default:
		return v
	}
}
