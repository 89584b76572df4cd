package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognicore/postmeta/pkg/postmeta/internalerr"
)

func TestReadJSONL(t *testing.T) {
	input := "{\"text\":\"first\",\"id\":1}\n\n  {\"text\":\"second\"}  \n"
	posts, err := ReadJSONL(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}
	if len(posts) != 2 || posts[0].Text != "first" || posts[1].Text != "second" {
		t.Fatalf("unexpected posts %+v", posts)
	}
	if string(posts[0].Fields["id"]) != "1" {
		t.Errorf("extra fields should be kept, got %s", posts[0].Fields["id"])
	}
}

func TestReadJSONLNamesBadLine(t *testing.T) {
	_, err := ReadJSONL(strings.NewReader("{\"text\":\"ok\"}\n{\"text\": 5}\n"))
	if !errors.Is(err, internalerr.ErrSourceUnreadable) {
		t.Fatalf("expected ErrSourceUnreadable, got %v", err)
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error should name the line: %v", err)
	}
}

func TestReadJSONLEmpty(t *testing.T) {
	posts, err := ReadJSONL(strings.NewReader(""))
	if err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}
	if posts == nil || len(posts) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", posts)
	}
}

func TestFileSourceDetectsJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.ndjson")
	if err := os.WriteFile(path, []byte("{\"text\":\"a\"}\n{\"text\":\"b\"}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	posts, err := FileSource{Path: path}.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(posts) != 2 {
		t.Errorf("got %d posts, want 2", len(posts))
	}
}

func TestIsJSONL(t *testing.T) {
	for path, want := range map[string]bool{
		"posts.jsonl":  true,
		"POSTS.NDJSON": true,
		"posts.json":   false,
		"posts":        false,
	} {
		if got := IsJSONL(path); got != want {
			t.Errorf("IsJSONL(%q) = %v, want %v", path, got, want)
		}
	}
}
