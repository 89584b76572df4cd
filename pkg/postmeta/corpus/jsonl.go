package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cognicore/postmeta/pkg/postmeta/internalerr"
)

const maxLineSize = 4 << 20

// ReadJSONL decodes one post object per line. Blank lines are ignored.
// Unlike Read it names the failing line rather than the post index.
func ReadJSONL(r io.Reader) ([]Post, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	posts := []Post{}
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var p Post
		if err := json.Unmarshal(line, &p); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", internalerr.ErrSourceUnreadable, lineNo, err)
		}
		posts = append(posts, p)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrSourceUnreadable, err)
	}
	return posts, nil
}

// IsJSONL reports whether path names a line-delimited file.
func IsJSONL(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return true
	}
	return false
}
