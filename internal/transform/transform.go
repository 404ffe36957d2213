// Package transform rewrites wikilinks between published notes into
// hyperlinks that work inside a gist.
//
// Given a note that links to [[Note 2]], where Note 2 carries
// gist_id: "12345", the published copy links to
// [Note 2](https://gist.github.com/12345#file-note-2-md). When both notes
// live in the same gist the link collapses to [Note 2](#file-note-2-md).
package transform

import (
	"fmt"
	"sort"
	"strings"

	"github.com/starford/gistpub/internal/gist"
	"github.com/starford/gistpub/internal/header"
	"github.com/starford/gistpub/internal/models"
)

// MetadataIndex is the read-only view of the vault the transformer needs.
type MetadataIndex interface {
	header.Source
	OutboundLinks(path string) ([]models.OutboundLink, error)
	Document(path string) (models.Document, bool, error)
	LinkText(path string) (string, error)
}

// Transform returns content with every link to a published note rewritten.
// The front matter, if any, is left in place.
func Transform(idx MetadataIndex, doc models.Document, content string) (string, error) {
	transformations, err := Transformations(idx, doc)
	if err != nil {
		return "", err
	}
	return Apply(content, transformations), nil
}

// Transformations computes the rewrites for doc. Links to targets that do not
// resolve to a note, or to notes without a gist_id, produce nothing.
func Transformations(idx MetadataIndex, doc models.Document) ([]models.LinkTransformation, error) {
	own, _, err := header.Extract(idx, doc)
	if err != nil {
		return nil, err
	}
	active := own.GistID()

	links, err := idx.OutboundLinks(doc.Path)
	if err != nil {
		return nil, fmt.Errorf("transform: links of %s: %w", doc.Path, err)
	}

	var out []models.LinkTransformation
	for _, l := range links {
		target, ok, err := idx.Document(l.Path)
		if err != nil {
			return nil, fmt.Errorf("transform: resolve %s: %w", l.Path, err)
		}
		if !ok {
			continue
		}
		t, ok, err := build(idx, target, active)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func build(idx MetadataIndex, target models.Document, active string) (models.LinkTransformation, bool, error) {
	fm, _, err := header.Extract(idx, target)
	if err != nil {
		return models.LinkTransformation{}, false, err
	}
	gistID := fm.GistID()
	if gistID == "" {
		return models.LinkTransformation{}, false, nil
	}

	linkText, err := idx.LinkText(target.Path)
	if err != nil {
		return models.LinkTransformation{}, false, fmt.Errorf("transform: link text of %s: %w", target.Path, err)
	}

	href := "#" + gist.AnchorID(target.Name)
	if gistID != active {
		href = gist.SnippetURL(gistID) + href
	}

	return models.LinkTransformation{
		Pattern:     "[[" + linkText + "]]",
		Replacement: "[" + linkText + "](" + href + ")",
	}, true, nil
}

// Apply replaces the first occurrence of each pattern, longest pattern
// first. Patterns of equal length keep their given order.
func Apply(content string, transformations []models.LinkTransformation) string {
	ordered := make([]models.LinkTransformation, len(transformations))
	copy(ordered, transformations)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].Pattern) > len(ordered[j].Pattern)
	})

	for _, t := range ordered {
		content = strings.Replace(content, t.Pattern, t.Replacement, 1)
	}
	return content
}
