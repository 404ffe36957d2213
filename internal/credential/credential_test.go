package credential

import (
	"os"
	"path/filepath"
	"testing"
)

func TestToken_MissingFileUsesFallback(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "credentials.yaml"), "from-config")
	got, err := s.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if got != "from-config" {
		t.Errorf("Token = %q, want fallback", got)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.yaml")
	s := NewStore(path, "from-config")

	if err := s.Save("  ghp_secret\n"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if got != "ghp_secret" {
		t.Errorf("Token = %q", got)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("mode = %o, want 600", perm)
	}
}

func TestSaveTightensExistingMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	if err := os.WriteFile(path, []byte("token: old\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := NewStore(path, "").Save("new"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("mode = %o, want 600", perm)
	}
}

func TestClear(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "credentials.yaml"), "")
	if err := s.Save("abc"); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	got, err := s.Token()
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("Token after Clear = %q", got)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	if err := os.WriteFile(path, []byte("token: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewStore(path, "").Token(); err == nil {
		t.Error("expected parse error")
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"abc", "***"},
		{"ghp_12345678", "********5678"},
	}
	for _, tt := range tests {
		if got := Mask(tt.in); got != tt.want {
			t.Errorf("Mask(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
