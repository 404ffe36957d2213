package publisher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/starford/gistpub/internal/apperr"
	"github.com/starford/gistpub/internal/gist"
	"github.com/starford/gistpub/internal/index"
	"github.com/starford/gistpub/internal/storage"
	"github.com/starford/gistpub/internal/testutil"
)

func setup(t *testing.T, token string, files map[string]string) (*Service, *testutil.FakeGist, *index.Vault, *storage.FS) {
	t.Helper()
	vault, store := testutil.TestVault(t, files)
	fake := &testutil.FakeGist{NextID: "new1"}
	factory := func(string) (gist.Service, error) { return fake, nil }
	svc := New(vault, store, testutil.StaticToken(token), factory, testutil.DiscardLogger())
	return svc, fake, vault, store
}

func read(t *testing.T, store storage.Provider, path string) string {
	t.Helper()
	data, err := store.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestPublish_NoCredential(t *testing.T) {
	svc, fake, _, _ := setup(t, "", map[string]string{"A.md": "body"})

	_, err := svc.PublishFile(context.Background(), "A.md")
	if !errors.Is(err, apperr.ErrNoCredential) {
		t.Fatalf("err = %v, want ErrNoCredential", err)
	}
	if len(fake.Calls) != 0 {
		t.Errorf("remote called %d times", len(fake.Calls))
	}
}

func TestPublish_NoActiveDocument(t *testing.T) {
	svc, _, _, _ := setup(t, "tok", nil)
	if _, err := svc.PublishFile(context.Background(), ""); !errors.Is(err, apperr.ErrNoActiveDocument) {
		t.Fatalf("err = %v, want ErrNoActiveDocument", err)
	}
}

func TestPublish_NotFound(t *testing.T) {
	svc, _, _, _ := setup(t, "tok", nil)
	if _, err := svc.PublishFile(context.Background(), "missing.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPublish_CreateWithoutHeader(t *testing.T) {
	original := "See [[B]]\n"
	svc, fake, vault, store := setup(t, "tok", map[string]string{
		"A.md": original,
		"B.md": "---\ngist_id: \"g2\"\n---\nB\n",
	})

	res, err := svc.PublishFile(context.Background(), "A.md")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !res.Created || res.GistID != "new1" || res.URL != "https://gist.github.com/new1" {
		t.Errorf("result = %+v", res)
	}

	if len(fake.Calls) != 1 || fake.Calls[0].Method != "create" {
		t.Fatalf("calls = %+v", fake.Calls)
	}
	call := fake.Calls[0]
	if call.Public {
		t.Error("gist must be private")
	}
	if got := call.Files["A.md"].Content; got != "See [B](https://gist.github.com/g2#file-b-md)\n" {
		t.Errorf("uploaded = %q", got)
	}

	want := "---\ngist_id: \"new1\"\n---\n\n" + original
	if got := read(t, store, "A.md"); got != want {
		t.Errorf("file = %q, want %q", got, want)
	}

	fm, ok, err := vault.FrontMatter("A.md")
	if err != nil || !ok || fm.GistID() != "new1" {
		t.Errorf("index not refreshed: fm=%+v ok=%v err=%v", fm, ok, err)
	}
}

func TestPublish_CreateWithHeader(t *testing.T) {
	svc, fake, _, store := setup(t, "tok", map[string]string{
		"notes/A.md": "---\ntitle: T\ntags: [x]\n---\nBody\n",
	})

	if _, err := svc.PublishFile(context.Background(), "notes/A.md"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := fake.Calls[0].Files["A.md"].Content; got != "Body\n" {
		t.Errorf("uploaded = %q", got)
	}
	want := "---\ntitle: T\ntags: [x]\ngist_id: \"new1\"\n---\nBody\n"
	if got := read(t, store, "notes/A.md"); got != want {
		t.Errorf("file = %q, want %q", got, want)
	}
}

func TestPublish_UpdateWhenPublished(t *testing.T) {
	original := "---\ngist_id: \"g1\"\n---\nSee [[B]] and [[C]]\n"
	svc, fake, _, store := setup(t, "tok", map[string]string{
		"A.md": original,
		"B.md": "---\ngist_id: g1\n---\n",
		"C.md": "no header",
	})

	res, err := svc.PublishFile(context.Background(), "A.md")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if res.Created || res.GistID != "g1" {
		t.Errorf("result = %+v", res)
	}
	if len(fake.Calls) != 1 || fake.Calls[0].Method != "update" || fake.Calls[0].ID != "g1" {
		t.Fatalf("calls = %+v", fake.Calls)
	}
	if got := fake.Calls[0].Files["A.md"].Content; got != "See [B](#file-b-md) and [[C]]\n" {
		t.Errorf("uploaded = %q", got)
	}
	if got := read(t, store, "A.md"); got != original {
		t.Errorf("file changed on update: %q", got)
	}
}

func TestPublish_SecondPublishUpdates(t *testing.T) {
	svc, fake, _, _ := setup(t, "tok", map[string]string{"A.md": "text\n"})

	if _, err := svc.PublishFile(context.Background(), "A.md"); err != nil {
		t.Fatal(err)
	}
	res, err := svc.PublishFile(context.Background(), "A.md")
	if err != nil {
		t.Fatal(err)
	}
	if res.Created {
		t.Error("second publish created a new gist")
	}
	if len(fake.Calls) != 2 || fake.Calls[1].Method != "update" || fake.Calls[1].ID != "new1" {
		t.Fatalf("calls = %+v", fake.Calls)
	}
	if got := fake.Calls[1].Files["A.md"].Content; got != "\ntext\n" {
		t.Errorf("uploaded = %q", got)
	}
}

func TestPublish_RemoteErrorLeavesNoteUntouched(t *testing.T) {
	original := "---\ntitle: T\n---\nBody\n"
	svc, fake, _, store := setup(t, "tok", map[string]string{"A.md": original})
	fake.Err = &gist.APIError{StatusCode: http.StatusUnauthorized, Status: "401 Unauthorized", Message: "Bad credentials"}

	_, err := svc.PublishFile(context.Background(), "A.md")
	var apiErr *gist.APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Bad credentials" {
		t.Fatalf("err = %v, want APIError", err)
	}
	if got := read(t, store, "A.md"); got != original {
		t.Errorf("file changed: %q", got)
	}
}

type failingBuffer struct{}

func (failingBuffer) Replace(string) error { return errors.New("read-only") }

func TestPublish_BufferFailure(t *testing.T) {
	svc, _, _, _ := setup(t, "tok", map[string]string{"A.md": "x"})
	if _, err := svc.Publish(context.Background(), "A.md", failingBuffer{}); err == nil {
		t.Fatal("expected buffer error")
	}
}

type recordingBuffer struct{ content string }

func (b *recordingBuffer) Replace(content string) error {
	b.content = content
	return nil
}

func TestPublish_CustomBuffer(t *testing.T) {
	svc, _, _, store := setup(t, "tok", map[string]string{"A.md": "x"})
	buf := &recordingBuffer{}
	if _, err := svc.Publish(context.Background(), "A.md", buf); err != nil {
		t.Fatal(err)
	}
	if buf.content != "---\ngist_id: \"new1\"\n---\n\nx" {
		t.Errorf("buffer = %q", buf.content)
	}
	if got := read(t, store, "A.md"); got != "x" {
		t.Errorf("store written directly: %q", got)
	}
}

func TestPublish_ClientFactoryError(t *testing.T) {
	vault, store := testutil.TestVault(t, map[string]string{"A.md": "x"})
	factory := func(string) (gist.Service, error) { return nil, errors.New("bad") }
	svc := New(vault, store, testutil.StaticToken("tok"), factory, testutil.DiscardLogger())
	if _, err := svc.PublishFile(context.Background(), "A.md"); err == nil {
		t.Fatal("expected factory error")
	}
}

func TestNotice(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "Created successfully!"},
		{apperr.ErrNoCredential, "No Github token"},
		{
			fmt.Errorf("gist: create: %w", &gist.APIError{Status: "404 Not Found", Message: "Not Found"}),
			"Github API error: 404 Not Found: Not Found",
		},
		{apperr.ErrNoActiveDocument, "no active document"},
	}
	for _, tt := range tests {
		if got := Notice(tt.err); got != tt.want {
			t.Errorf("Notice(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
