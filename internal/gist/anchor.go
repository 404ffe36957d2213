package gist

import "strings"

// BaseURL is the public address of hosted gists.
const BaseURL = "https://gist.github.com/"

// AnchorID returns the fragment GitHub generates for a file inside a gist.
// Only the first dot becomes a separator, matching GitHub's own naming:
//
//	AnchorID("My File.md") // "file-my-file-md"
//	AnchorID("a.b.c.md")   // "file-a-b.c-md"
func AnchorID(filename string) string {
	name := strings.Replace(strings.ToLower(filename), ".", " ", 1)
	return "file-" + strings.Join(strings.Split(name, " "), "-")
}

// SnippetURL returns the public URL of a gist.
func SnippetURL(id string) string {
	return BaseURL + id
}
