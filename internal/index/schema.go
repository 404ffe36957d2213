// Package index provides the SQLite-backed metadata index of a vault: parsed
// front matter, raw wikilinks, and link resolution between notes.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	path            TEXT PRIMARY KEY,
	name            TEXT NOT NULL DEFAULT '',
	checksum        TEXT NOT NULL DEFAULT '',
	gist_id         TEXT NOT NULL DEFAULT '',
	frontmatter     TEXT,
	frontmatter_end INTEGER NOT NULL DEFAULT -1,
	updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS links (
	source      TEXT NOT NULL,
	target      TEXT NOT NULL,
	ordinal     INTEGER NOT NULL,
	occurrences INTEGER NOT NULL DEFAULT 1,
	UNIQUE(source, target)
);

CREATE INDEX IF NOT EXISTS idx_links_source ON links(source);
CREATE INDEX IF NOT EXISTS idx_notes_gist ON notes(gist_id);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
