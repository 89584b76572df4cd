package internalerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for the enrichment pipeline
var (
	ErrMalformedModelOutput = errors.New("malformed model output")
	ErrNoJSONFound          = errors.New("no JSON object found in model output")
	ErrSchemaViolation      = errors.New("metadata violates output contract")
	ErrTagMapIncomplete     = errors.New("tag map incomplete")
	ErrSourceUnreadable     = errors.New("source unreadable")
	ErrSinkUnwritable       = errors.New("sink unwritable")
	ErrInvalidConfig        = errors.New("invalid configuration")
)

// maxRawInError bounds how much model text is echoed in Error().
// The full text stays available in MalformedOutputError.Raw.
const maxRawInError = 200

// MalformedOutputError carries the raw model response that could not be accepted.
// It matches ErrMalformedModelOutput and its underlying cause under errors.Is.
type MalformedOutputError struct {
	Stage string // "extract" or "unify"
	Raw   string
	Err   error
}

func (e *MalformedOutputError) Error() string {
	raw := e.Raw
	if len(raw) > maxRawInError {
		raw = raw[:maxRawInError] + "..."
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s: %q", e.Stage, ErrMalformedModelOutput, raw)
	}
	return fmt.Sprintf("%s: %s: %v: %q", e.Stage, ErrMalformedModelOutput, e.Err, raw)
}

func (e *MalformedOutputError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedModelOutput}
	}
	return []error{ErrMalformedModelOutput, e.Err}
}

// Malformed builds a MalformedOutputError for the given stage.
func Malformed(stage, raw string, cause error) error {
	return &MalformedOutputError{Stage: stage, Raw: raw, Err: cause}
}

// TagMapIncompleteError names the raw tag that had no canonical mapping.
type TagMapIncompleteError struct {
	Tag string
}

func (e *TagMapIncompleteError) Error() string {
	return fmt.Sprintf("%s: no canonical entry for tag %q", ErrTagMapIncomplete, e.Tag)
}

func (e *TagMapIncompleteError) Unwrap() error {
	return ErrTagMapIncomplete
}
