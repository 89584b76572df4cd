package corpus

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/cognicore/postmeta/pkg/postmeta/metadata"
)

// Keys written by Merge. They take precedence over input fields of the same name.
const (
	KeyText      = "text"
	KeyLineCount = "line_count"
	KeyLanguage  = "language"
	KeyTags      = "tags"
)

// Post is one input record. Fields holds every key of the input object
// verbatim, text included; only Text is decoded. Keys records the input key
// order so output objects read like their input.
type Post struct {
	Text   string
	Fields map[string]json.RawMessage
	Keys   []string
}

// UnmarshalJSON decodes an object that must carry a string "text" field.
func (p *Post) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return errors.New("post is null")
	}
	raw, ok := fields[KeyText]
	if !ok {
		return errors.New(`post has no "text" field`)
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return fmt.Errorf(`post "text" is not a string: %w`, err)
	}
	keys, err := objectKeys(data)
	if err != nil {
		return err
	}
	p.Text = text
	p.Fields = fields
	p.Keys = keys
	return nil
}

// objectKeys lists the keys of a JSON object in document order, once each.
func objectKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var keys []string
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// MarshalJSON encodes the post's original fields.
func (p Post) MarshalJSON() ([]byte, error) {
	return marshalFields(p.Fields, p.Keys)
}

// EnrichedPost is a Post merged with its Metadata.
// Metadata is nil when extraction was skipped for this post.
type EnrichedPost struct {
	Post     Post
	Metadata *metadata.Metadata
}

// Merge unions post and md. Metadata keys win on collision; every other key
// of the post is carried over untouched.
func Merge(post Post, md metadata.Metadata) EnrichedPost {
	return EnrichedPost{Post: post, Metadata: &md}
}

// Tags returns the post's current tags, or nil when it has no metadata.
func (e EnrichedPost) Tags() []string {
	if e.Metadata == nil {
		return nil
	}
	return e.Metadata.Tags
}

// Fields returns the merged field set as raw JSON values.
func (e EnrichedPost) Fields() (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(e.Post.Fields)+3)
	for k, v := range e.Post.Fields {
		out[k] = v
	}
	if e.Metadata == nil {
		return out, nil
	}

	tags := e.Metadata.Tags
	if tags == nil {
		tags = []string{}
	}
	for key, val := range map[string]any{
		KeyLineCount: e.Metadata.LineCount,
		KeyLanguage:  e.Metadata.Language,
		KeyTags:      tags,
	} {
		raw, err := encodeCompact(val)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		out[key] = raw
	}
	return out, nil
}

// MarshalJSON encodes the merged field set.
func (e EnrichedPost) MarshalJSON() ([]byte, error) {
	fields, err := e.Fields()
	if err != nil {
		return nil, err
	}
	return marshalFields(fields, e.Post.Keys)
}

// Corpus is the ordered output collection, one entry per input post.
type Corpus []EnrichedPost

// marshalFields encodes fields as an object. Keys listed in order come first,
// then the metadata keys, then anything else sorted.
func marshalFields(fields map[string]json.RawMessage, order []string) ([]byte, error) {
	keys := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	add := func(k string) {
		if _, ok := fields[k]; ok && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for _, k := range order {
		add(k)
	}
	for _, k := range []string{KeyLineCount, KeyLanguage, KeyTags} {
		add(k)
	}
	var rest []string
	for k := range fields {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	keys = append(keys, rest...)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := encodeCompact(k)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		if v := fields[k]; v != nil {
			buf.Write(v)
		} else {
			buf.WriteString("null")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
