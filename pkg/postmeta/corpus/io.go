package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cognicore/postmeta/pkg/postmeta/internalerr"
)

// Source yields the input posts.
type Source interface {
	Load(ctx context.Context) ([]Post, error)
}

// Sink persists the finished corpus.
type Sink interface {
	Save(ctx context.Context, c Corpus) error
}

// Read decodes a JSON array of post objects.
func Read(r io.Reader) ([]Post, error) {
	var raws []json.RawMessage
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raws); err != nil {
		return nil, fmt.Errorf("%w: decode post array: %v", internalerr.ErrSourceUnreadable, err)
	}
	if raws == nil {
		return nil, fmt.Errorf("%w: document is null, want an array of posts", internalerr.ErrSourceUnreadable)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: unexpected data after the post array", internalerr.ErrSourceUnreadable)
	}

	posts := make([]Post, len(raws))
	for i, raw := range raws {
		if err := json.Unmarshal(raw, &posts[i]); err != nil {
			return nil, fmt.Errorf("%w: post %d: %v", internalerr.ErrSourceUnreadable, i, err)
		}
	}
	return posts, nil
}

// Write encodes the corpus as an indented JSON array.
func Write(w io.Writer, c Corpus) error {
	if c == nil {
		c = Corpus{}
	}
	return encodeIndented(w, c)
}

// FileSource reads posts from a JSON array file, or from a JSONL file when
// the extension is .jsonl or .ndjson.
type FileSource struct {
	Path string
}

// Load implements Source.
func (s FileSource) Load(ctx context.Context) ([]Post, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrSourceUnreadable, err)
	}
	defer f.Close()

	read := Read
	if IsJSONL(s.Path) {
		read = ReadJSONL
	}
	posts, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return posts, nil
}

func (s FileSource) String() string { return s.Path }

// FileSink writes the corpus to a JSON file. The file only appears once it
// is complete.
type FileSink struct {
	Path string
}

// Save implements Sink.
func (s FileSink) Save(ctx context.Context, c Corpus) error {
	if c == nil {
		c = Corpus{}
	}
	return WriteFileAtomic(s.Path, c)
}

// WriteFileAtomic encodes v as indented JSON into a temporary file next to
// path and renames it into place.
func WriteFileAtomic(path string, v any) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", internalerr.ErrSinkUnwritable, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if err := encodeIndented(tmp, v); err != nil {
		cleanup()
		return fmt.Errorf("%w: encode %s: %v", internalerr.ErrSinkUnwritable, path, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("%w: sync %s: %v", internalerr.ErrSinkUnwritable, path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close %s: %v", internalerr.ErrSinkUnwritable, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: rename into %s: %v", internalerr.ErrSinkUnwritable, path, err)
	}
	return nil
}

func encodeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	return enc.Encode(v)
}
