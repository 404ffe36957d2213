// Package models defines the domain types for gistpub.
package models

import (
	"fmt"
	"path"
	"strconv"
	"time"
)

// GistIDKey is the front matter key that records the published gist.
const GistIDKey = "gist_id"

// Document is a Markdown note in the vault.
type Document struct {
	Path string `json:"path"` // vault-relative, forward slashes
	Name string `json:"name"` // base file name, used as the gist file key
}

// NewDocument builds a Document from a vault-relative path.
func NewDocument(p string) Document {
	return Document{Path: p, Name: path.Base(p)}
}

// FrontMatter is the parsed YAML header of a note.
//
// The header always starts at line 0 and spans lines [0, EndLine] inclusive,
// where EndLine is the zero-based index of the closing delimiter.
type FrontMatter struct {
	Keys    []string       `json:"keys"`
	Values  map[string]any `json:"values"`
	EndLine int            `json:"end_line"`
}

// GistID returns the gist_id value, or "" if the note is unpublished.
func (f *FrontMatter) GistID() string {
	if f == nil {
		return ""
	}
	switch v := f.Values[GistIDKey].(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// OutboundLink is one resolved link target of a note. Count is informational.
type OutboundLink struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

// LinkTransformation replaces an internal link with an external one.
type LinkTransformation struct {
	Pattern     string
	Replacement string
}

// SnippetFile is one file entry of a gist.
type SnippetFile struct {
	Content string `json:"content"`
}

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
