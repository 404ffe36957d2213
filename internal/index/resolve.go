package index

import (
	"path"
	"sort"
	"strings"
)

const noteExt = ".md"

// resolver maps wikilink targets to vault paths. Notes are matched by exact
// path, then with the .md extension added, then relative to the linking note,
// then by file name anywhere in the vault (same folder first, then the
// shortest path). Anything else resolves only to an existing file, which is
// how attachments end up in the link set.
type resolver struct {
	notes  map[string]struct{}
	byName map[string][]string // lower-case stem → note paths
	exists func(string) bool
}

func newResolver(notes map[string]struct{}, exists func(string) bool) *resolver {
	r := &resolver{
		notes:  notes,
		byName: make(map[string][]string, len(notes)),
		exists: exists,
	}
	for p := range notes {
		key := strings.ToLower(stem(p))
		r.byName[key] = append(r.byName[key], p)
	}
	for _, paths := range r.byName {
		sort.Slice(paths, func(i, j int) bool {
			if len(paths[i]) != len(paths[j]) {
				return len(paths[i]) < len(paths[j])
			}
			return paths[i] < paths[j]
		})
	}
	return r
}

// resolve returns the vault path target points to when linked from source.
func (r *resolver) resolve(target, source string) (string, bool) {
	linkpath := strings.TrimPrefix(path.Clean(strings.TrimSpace(target)), "/")
	if linkpath == "" || linkpath == "." {
		return "", false
	}
	dir := path.Dir(source)

	candidates := []string{linkpath, linkpath + noteExt}
	if dir != "." {
		rel := path.Join(dir, linkpath)
		candidates = append(candidates, rel, rel+noteExt)
	}
	for _, c := range candidates {
		if _, ok := r.notes[c]; ok {
			return c, true
		}
	}

	matches := r.byName[strings.ToLower(stem(linkpath))]
	var suffixed []string
	for _, m := range matches {
		if hasPathSuffix(strings.TrimSuffix(m, noteExt), strings.TrimSuffix(linkpath, noteExt)) {
			suffixed = append(suffixed, m)
		}
	}
	for _, m := range suffixed {
		if path.Dir(m) == dir {
			return m, true
		}
	}
	if len(suffixed) > 0 {
		return suffixed[0], true
	}

	if r.exists != nil {
		for _, c := range []string{linkpath, path.Join(dir, linkpath)} {
			if r.exists(c) {
				return c, true
			}
		}
	}
	return "", false
}

// linkText is the shortest wikilink text that resolves back to p from its
// own folder: the file stem when unambiguous, otherwise the path without .md.
func (r *resolver) linkText(p string) string {
	s := stem(p)
	if got, ok := r.resolve(s, p); ok && got == p {
		return s
	}
	return strings.TrimSuffix(p, noteExt)
}

func stem(p string) string {
	return strings.TrimSuffix(path.Base(p), noteExt)
}

// hasPathSuffix reports whether p ends with the path components of suffix,
// comparing case-insensitively.
func hasPathSuffix(p, suffix string) bool {
	p, suffix = strings.ToLower(p), strings.ToLower(suffix)
	return p == suffix || strings.HasSuffix(p, "/"+suffix)
}
