// Package testutil provides shared test helpers for setting up vaults and databases.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/starford/gistpub/internal/gist"
	"github.com/starford/gistpub/internal/index"
	"github.com/starford/gistpub/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "gistpub-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault writes files into a temporary vault, indexes them and returns
// the indexed vault together with its store.
func TestVault(t *testing.T, files map[string]string) (*index.Vault, *storage.FS) {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for p, content := range files {
		if err := store.Write(p, []byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	db := TestDB(t)
	if _, err := index.Sync(db, store, DiscardLogger()); err != nil {
		t.Fatal(err)
	}
	return index.NewVault(db, store), store
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// Call is one recorded request to a FakeGist.
type Call struct {
	Method string
	ID     string
	Files  gist.Files
	Public bool
}

// FakeGist is an in-memory gist.Service.
type FakeGist struct {
	mu     sync.Mutex
	NextID string
	Err    error
	Calls  []Call
}

// Create records the call and returns NextID.
func (f *FakeGist) Create(_ context.Context, files gist.Files, public bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Call{Method: "create", Files: files, Public: public})
	if f.Err != nil {
		return "", f.Err
	}
	return f.NextID, nil
}

// Update records the call.
func (f *FakeGist) Update(_ context.Context, id string, files gist.Files, public bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Call{Method: "update", ID: id, Files: files, Public: public})
	return f.Err
}

// StaticToken is a fixed token source.
type StaticToken string

// Token returns the token.
func (s StaticToken) Token() (string, error) {
	return string(s), nil
}
