// Package parser extracts front matter and wikilinks from Markdown content.
package parser

import (
	"errors"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/wikilink"
	"gopkg.in/yaml.v3"

	"github.com/starford/gistpub/internal/models"
)

const delim = "---"

var (
	errNotMapping = errors.New("parser: front matter is not a mapping")

	markdown = goldmark.New(goldmark.WithExtensions(&wikilink.Extender{}))
)

// Link is a raw wikilink target together with its number of occurrences.
type Link struct {
	Target string
	Count  int
}

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter *models.FrontMatter
	Body        string
	Links       []Link
}

// Parse extracts front matter, body and wikilink targets from raw Markdown bytes.
func Parse(data []byte) (*Result, error) {
	content := string(data)
	fm, body := splitFrontmatter(content)

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Links:       extractLinks(body),
	}, nil
}

// splitFrontmatter separates the YAML header from the Markdown body. The
// header must open on the very first line; an unterminated or invalid header
// leaves the whole content as body.
func splitFrontmatter(content string) (*models.FrontMatter, string) {
	lines := strings.Split(content, "\n")
	if len(lines) < 2 || !isDelimiter(lines[0]) {
		return nil, content
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if isDelimiter(lines[i]) {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, content
	}

	fm, err := parseYAML(strings.Join(lines[1:end], "\n"))
	if err != nil {
		return nil, content
	}
	fm.EndLine = end

	return fm, strings.Join(lines[end+1:], "\n")
}

func isDelimiter(line string) bool {
	return strings.TrimRight(line, " \t\r") == delim
}

// parseYAML decodes a mapping while keeping key order. gist_id is kept as the
// literal scalar text so that all-digit identifiers survive unchanged.
func parseYAML(block string) (*models.FrontMatter, error) {
	fm := &models.FrontMatter{Keys: []string{}, Values: map[string]any{}}
	if strings.TrimSpace(block) == "" {
		return fm, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(block), &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return fm, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errNotMapping
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		valNode := root.Content[i+1]

		var val any
		if key == models.GistIDKey && valNode.Kind == yaml.ScalarNode && valNode.Tag != "!!null" {
			val = valNode.Value
		} else if err := valNode.Decode(&val); err != nil {
			return nil, err
		}

		if _, dup := fm.Values[key]; !dup {
			fm.Keys = append(fm.Keys, key)
		}
		fm.Values[key] = val
	}
	return fm, nil
}

// extractLinks returns wikilink targets in first-occurrence order with their
// occurrence counts. Aliases ([[Target|Alias]]) and headings ([[Target#H]])
// are reduced to the target; links inside code are not links.
func extractLinks(body string) []Link {
	src := []byte(body)
	root := markdown.Parser().Parse(text.NewReader(src))

	pos := make(map[string]int)
	var out []Link
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		node, ok := n.(*wikilink.Node)
		if !ok {
			return gmast.WalkContinue, nil
		}
		target := LinkTarget(string(node.Target))
		if target == "" {
			return gmast.WalkSkipChildren, nil
		}
		if i, seen := pos[target]; seen {
			out[i].Count++
		} else {
			pos[target] = len(out)
			out = append(out, Link{Target: target, Count: 1})
		}
		return gmast.WalkSkipChildren, nil
	})
	return out
}

// LinkTarget strips the alias and heading parts of a raw wikilink.
func LinkTarget(raw string) string {
	target := raw
	if i := strings.Index(target, "|"); i >= 0 {
		target = target[:i]
	}
	if i := strings.Index(target, "#"); i >= 0 {
		target = target[:i]
	}
	return strings.TrimSpace(target)
}
