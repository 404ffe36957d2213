// Package header reads and rewrites the YAML front matter block of a note.
package header

import (
	"fmt"
	"strings"

	"github.com/starford/gistpub/internal/models"
)

// Source supplies parsed front matter; the header is never re-parsed here.
type Source interface {
	FrontMatter(path string) (*models.FrontMatter, bool, error)
}

// Extract returns the front matter of doc. A note without a header yields
// (nil, false, nil): that is the normal state before a first publish.
func Extract(src Source, doc models.Document) (*models.FrontMatter, bool, error) {
	fm, ok, err := src.FrontMatter(doc.Path)
	if err != nil {
		return nil, false, fmt.Errorf("header: extract %s: %w", doc.Path, err)
	}
	if !ok || fm == nil {
		return nil, false, nil
	}
	return fm, true, nil
}

// Strip removes the header lines [0, fm.EndLine] from content.
func Strip(content string, fm *models.FrontMatter) string {
	if fm == nil {
		return content
	}
	lines := strings.Split(content, "\n")
	if fm.EndLine+1 >= len(lines) {
		return ""
	}
	return strings.Join(lines[fm.EndLine+1:], "\n")
}

// InsertGistID adds a gist_id line at fm.EndLine, just above the closing
// delimiter. Every other line is kept verbatim and in order.
func InsertGistID(content string, fm *models.FrontMatter, gistID string) string {
	lines := strings.Split(content, "\n")
	at := min(max(fm.EndLine, 0), len(lines))

	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:at]...)
	out = append(out, gistIDLine(gistID))
	out = append(out, lines[at:]...)
	return strings.Join(out, "\n")
}

// Synthesize prepends a new header holding only gist_id.
func Synthesize(content, gistID string) string {
	return "---\n" + gistIDLine(gistID) + "\n---\n\n" + content
}

func gistIDLine(gistID string) string {
	return fmt.Sprintf("%s: %q", models.GistIDKey, gistID)
}
