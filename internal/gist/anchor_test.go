package gist

import "testing"

func TestAnchorID(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"My File.md", "file-my-file-md"},
		{"B.md", "file-b-md"},
		{"a.b.c.md", "file-a-b.c-md"},
		{"My file name.md", "file-my-file-name-md"},
		{"README", "file-readme"},
		{"two  spaces.md", "file-two--spaces-md"},
	}
	for _, tt := range tests {
		if got := AnchorID(tt.filename); got != tt.want {
			t.Errorf("AnchorID(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestAnchorID_Deterministic(t *testing.T) {
	if AnchorID("Same.md") != AnchorID("Same.md") {
		t.Error("AnchorID must be deterministic")
	}
}

func TestSnippetURL(t *testing.T) {
	if got := SnippetURL("g2"); got != "https://gist.github.com/g2" {
		t.Errorf("SnippetURL = %q", got)
	}
}
