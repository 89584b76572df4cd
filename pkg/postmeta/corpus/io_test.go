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

func TestReadRejectsNonArray(t *testing.T) {
	inputs := map[string]string{
		"object":           `{"text":"x"}`,
		"null":             `null`,
		"empty":            ``,
		"trailing garbage": `[] trailing garbage`,
		"second array":     `[{"text":"a"}] [{"text":"b"}]`,
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			posts, err := Read(strings.NewReader(in))
			if !errors.Is(err, internalerr.ErrSourceUnreadable) {
				t.Fatalf("expected ErrSourceUnreadable, got posts=%v err=%v", posts, err)
			}
		})
	}
}

func TestReadEmptyArray(t *testing.T) {
	posts, err := Read(strings.NewReader("[]\n"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("expected no posts, got %d", len(posts))
	}
}

func TestReadNamesBadPost(t *testing.T) {
	_, err := Read(strings.NewReader(`[{"text":"ok"},{"id":2}]`))
	if !errors.Is(err, internalerr.ErrSourceUnreadable) {
		t.Fatalf("expected ErrSourceUnreadable, got %v", err)
	}
	if !strings.Contains(err.Error(), "post 1") {
		t.Errorf("error should name the post index: %v", err)
	}
}

func TestFileSourceMissing(t *testing.T) {
	_, err := FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}.Load(context.Background())
	if !errors.Is(err, internalerr.ErrSourceUnreadable) {
		t.Fatalf("expected ErrSourceUnreadable, got %v", err)
	}
}

func TestFileSinkRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "raw.json")
	if err := os.WriteFile(in, []byte(`[{"text":"a","id":1}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	posts, err := FileSource{Path: in}.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	out := filepath.Join(dir, "processed.json")
	if err := (FileSink{Path: out}).Save(context.Background(), Corpus{{Post: posts[0]}}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	back, err := FileSource{Path: out}.Load(context.Background())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(back) != 1 || back[0].Text != "a" {
		t.Errorf("unexpected round trip: %+v", back)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestFileSinkUnwritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no-such-dir", "out.json")
	err := FileSink{Path: path}.Save(context.Background(), Corpus{})
	if !errors.Is(err, internalerr.ErrSinkUnwritable) {
		t.Fatalf("expected ErrSinkUnwritable, got %v", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("no output file should exist")
	}
}
