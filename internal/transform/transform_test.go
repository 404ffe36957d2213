package transform

import (
	"io"
	"log/slog"
	"testing"

	"github.com/starford/gistpub/internal/index"
	"github.com/starford/gistpub/internal/models"
	"github.com/starford/gistpub/internal/storage"
)

type fakeNote struct {
	fm    *models.FrontMatter
	links []models.OutboundLink
	text  string
}

// fakeIndex serves metadata from memory. Paths missing from notes are
// treated as attachments: they resolve but are not documents.
type fakeIndex map[string]fakeNote

func (f fakeIndex) FrontMatter(path string) (*models.FrontMatter, bool, error) {
	n := f[path]
	return n.fm, n.fm != nil, nil
}

func (f fakeIndex) OutboundLinks(path string) ([]models.OutboundLink, error) {
	return f[path].links, nil
}

func (f fakeIndex) Document(path string) (models.Document, bool, error) {
	if _, ok := f[path]; !ok {
		return models.Document{}, false, nil
	}
	return models.NewDocument(path), true, nil
}

func (f fakeIndex) LinkText(path string) (string, error) {
	if t := f[path].text; t != "" {
		return t, nil
	}
	return path[:len(path)-len(".md")], nil
}

func published(id string) *models.FrontMatter {
	return &models.FrontMatter{
		Keys:    []string{models.GistIDKey},
		Values:  map[string]any{models.GistIDKey: id},
		EndLine: 2,
	}
}

func links(paths ...string) []models.OutboundLink {
	out := make([]models.OutboundLink, len(paths))
	for i, p := range paths {
		out[i] = models.OutboundLink{Path: p, Count: 1}
	}
	return out
}

func TestTransform_CrossBundle(t *testing.T) {
	idx := fakeIndex{
		"A.md": {fm: published("g1"), links: links("B.md")},
		"B.md": {fm: published("g2")},
	}
	got, err := Transform(idx, models.NewDocument("A.md"), "See [[B]]")
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	want := "See [B](https://gist.github.com/g2#file-b-md)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTransform_SameBundle(t *testing.T) {
	idx := fakeIndex{
		"A.md": {fm: published("g1"), links: links("B.md")},
		"B.md": {fm: published("g1")},
	}
	got, err := Transform(idx, models.NewDocument("A.md"), "See [[B]]")
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if got != "See [B](#file-b-md)" {
		t.Errorf("got %q", got)
	}
}

func TestTransform_UnpublishedSourceUsesFullURL(t *testing.T) {
	idx := fakeIndex{
		"A.md": {links: links("B.md")},
		"B.md": {fm: published("g2")},
	}
	got, err := Transform(idx, models.NewDocument("A.md"), "[[B]]")
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if got != "[B](https://gist.github.com/g2#file-b-md)" {
		t.Errorf("got %q", got)
	}
}

func TestTransform_SkipsUnpublishedAndUnresolved(t *testing.T) {
	idx := fakeIndex{
		"A.md": {fm: published("g1"), links: links("C.md", "img.png")},
		"C.md": {fm: &models.FrontMatter{Keys: []string{"title"}, Values: map[string]any{"title": "C"}, EndLine: 2}},
	}
	content := "[[C]] [[Missing]] ![[img.png]]"
	got, err := Transform(idx, models.NewDocument("A.md"), content)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if got != content {
		t.Errorf("content changed: %q", got)
	}
}

func TestTransform_NoLinks(t *testing.T) {
	idx := fakeIndex{"A.md": {}}
	content := "---\ntitle: x\n---\nplain text"
	got, err := Transform(idx, models.NewDocument("A.md"), content)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if got != content {
		t.Errorf("got %q", got)
	}
}

func TestTransform_SelfLink(t *testing.T) {
	idx := fakeIndex{
		"A.md": {fm: published("g1"), links: links("A.md")},
	}
	got, err := Transform(idx, models.NewDocument("A.md"), "top: [[A]]")
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if got != "top: [A](#file-a-md)" {
		t.Errorf("got %q", got)
	}
}

func TestTransform_FirstOccurrenceOnly(t *testing.T) {
	idx := fakeIndex{
		"A.md": {links: []models.OutboundLink{{Path: "B.md", Count: 2}}},
		"B.md": {fm: published("g2")},
	}
	got, err := Transform(idx, models.NewDocument("A.md"), "[[B]] and [[B]]")
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if got != "[B](https://gist.github.com/g2#file-b-md) and [[B]]" {
		t.Errorf("got %q", got)
	}
}

func TestTransform_FolderLinkText(t *testing.T) {
	idx := fakeIndex{
		"A.md":            {links: links("notes/Note 2.md")},
		"notes/Note 2.md": {fm: published("12345"), text: "notes/Note 2"},
	}
	got, err := Transform(idx, models.NewDocument("A.md"), "[[notes/Note 2]]")
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	want := "[notes/Note 2](https://gist.github.com/12345#file-note-2-md)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTransformations_SkipsWhenNoGistID(t *testing.T) {
	idx := fakeIndex{
		"A.md": {links: links("B.md")},
		"B.md": {},
	}
	ts, err := Transformations(idx, models.NewDocument("A.md"))
	if err != nil {
		t.Fatalf("Transformations: %v", err)
	}
	if len(ts) != 0 {
		t.Errorf("got %+v", ts)
	}
}

func TestApply_LongestPatternFirst(t *testing.T) {
	ts := []models.LinkTransformation{
		{Pattern: "[[B]]", Replacement: "[B](#file-b-md)"},
		{Pattern: "[[B Extended]]", Replacement: "[B Extended](#file-b-extended-md)"},
	}
	got := Apply("[[B Extended]] then [[B]]", ts)
	want := "[B Extended](#file-b-extended-md) then [B](#file-b-md)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	ts := []models.LinkTransformation{
		{Pattern: "[[a]]", Replacement: "A"},
		{Pattern: "[[bbb]]", Replacement: "B"},
	}
	Apply("[[a]] [[bbb]]", ts)
	if ts[0].Pattern != "[[a]]" {
		t.Error("Apply reordered its argument")
	}
}

func TestTransform_WithVault(t *testing.T) {
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"A.md":       "---\ngist_id: \"g1\"\n---\nSee [[B]], [[C]] and [[Sub/D]].\n",
		"B.md":       "---\ngist_id: \"g2\"\n---\nB body\n",
		"C.md":       "---\ngist_id: g1\n---\nC body\n",
		"Sub/D.md":   "no header\n",
		"Other/B.md": "---\ngist_id: \"g9\"\n---\n",
	}
	for p, c := range files {
		if err := store.Write(p, []byte(c)); err != nil {
			t.Fatal(err)
		}
	}
	db, err := index.Open(t.TempDir() + "/index.db")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := index.Sync(db, store, slog.New(slog.NewJSONHandler(io.Discard, nil))); err != nil {
		t.Fatal(err)
	}
	vault := index.NewVault(db, store)

	got, err := Transform(vault, models.NewDocument("A.md"), "See [[B]], [[C]] and [[Sub/D]].\n")
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	want := "See [B](https://gist.github.com/g2#file-b-md), [C](#file-c-md) and [[Sub/D]].\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
