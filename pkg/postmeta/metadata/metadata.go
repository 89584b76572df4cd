package metadata

import (
	"fmt"
	"strings"

	"github.com/cognicore/postmeta/pkg/postmeta/internalerr"
)

// Languages accepted by the output contract.
const (
	English  = "English"
	Hinglish = "Hinglish"
)

// MaxTags is the tag cap requested from the model.
const MaxTags = 2

// Metadata is the model-derived description of one post.
type Metadata struct {
	LineCount int      `json:"line_count"`
	Language  string   `json:"language"`
	Tags      []string `json:"tags"`
}

// Validate checks the fields against the prompt contract.
// It is only applied in strict mode; violations are reported, never clamped.
func (m Metadata) Validate() error {
	if m.LineCount < 0 {
		return fmt.Errorf("%w: line_count %d is negative", internalerr.ErrSchemaViolation, m.LineCount)
	}
	if m.Language != English && m.Language != Hinglish {
		return fmt.Errorf("%w: language %q not in {%s, %s}", internalerr.ErrSchemaViolation, m.Language, English, Hinglish)
	}
	if len(m.Tags) > MaxTags {
		return fmt.Errorf("%w: %d tags, max %d", internalerr.ErrSchemaViolation, len(m.Tags), MaxTags)
	}
	for i, tag := range m.Tags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("%w: tag %d is blank", internalerr.ErrSchemaViolation, i)
		}
	}
	return nil
}
