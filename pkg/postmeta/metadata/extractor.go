package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cognicore/postmeta/pkg/postmeta"
	"github.com/cognicore/postmeta/pkg/postmeta/internalerr"
	"github.com/cognicore/postmeta/pkg/postmeta/prompts"
)

// Stage names this step in errors and metrics.
const Stage = "extract"

// Extractor derives Metadata for one post with a single model call.
type Extractor struct {
	invoker postmeta.Invoker
	strict  bool
	logger  *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithStrict turns on contract validation of parsed metadata.
func WithStrict(strict bool) Option {
	return func(e *Extractor) { e.strict = strict }
}

// WithLogger sets the logger used for wire-level debugging.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) { e.logger = logger }
}

// NewExtractor creates an extractor backed by the given model invoker.
func NewExtractor(invoker postmeta.Invoker, opts ...Option) *Extractor {
	e := &Extractor{invoker: invoker, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "extractor")
	return e
}

// Extract asks the model for the metadata of postText.
// postText should already be sanitized. The response must be a bare JSON
// object; anything else is a MalformedOutputError carrying the raw text.
func (e *Extractor) Extract(ctx context.Context, postText string) (Metadata, error) {
	resp, err := e.invoker.Invoke(ctx, prompts.Extraction(postText))
	if err != nil {
		return Metadata{}, fmt.Errorf("%s: invoke model: %w", Stage, err)
	}
	e.logger.Debug("extraction response", "bytes", len(resp.Content))

	md, err := Parse(resp.Content)
	if err != nil {
		return Metadata{}, err
	}
	if e.strict {
		if err := md.Validate(); err != nil {
			return Metadata{}, internalerr.Malformed(Stage, resp.Content, err)
		}
	}
	return md, nil
}

// Parse decodes a strict JSON metadata object. No span extraction or repair
// is attempted; surrounding prose, a non-object value, or fields of the wrong
// JSON type all make the output malformed.
func Parse(raw string) (Metadata, error) {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Metadata{}, internalerr.Malformed(Stage, raw, fmt.Errorf("response is not a JSON object"))
	}
	var md Metadata
	if err := json.Unmarshal(trimmed, &md); err != nil {
		return Metadata{}, internalerr.Malformed(Stage, raw, err)
	}
	return md, nil
}
