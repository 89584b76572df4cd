package sanitize

import (
	"testing"
	"unicode/utf8"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "ascii", input: "Just got promoted!", want: "Just got promoted!"},
		{name: "multibyte kept", input: "Naukri mil gayi 🎉 — शुभकामनाएं", want: "Naukri mil gayi 🎉 — शुभकामनाएं"},
		{name: "invalid byte dropped", input: "ab\xffcd", want: "abcd"},
		{name: "truncated sequence dropped", input: "x\xe2\x82", want: "x"},
		{name: "encoded surrogate dropped", input: "a\xed\xa0\x80b", want: "ab"},
		{name: "newlines kept", input: "line one\nline two", want: "line one\nline two"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("Sanitize(%q) returned invalid UTF-8", tt.input)
			}
		})
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	in := "mixed \xc3\x28 bytes \xf0\x9f\x98\x80"
	once := Sanitize(in)
	if twice := Sanitize(once); twice != once {
		t.Errorf("Sanitize not idempotent: %q vs %q", once, twice)
	}
}

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain text untouched", input: "No HTML here", want: "No HTML here"},
		{name: "paragraphs", input: "<p>Line 1</p><p>Line 2</p>", want: "Line 1\nLine 2"},
		{name: "line break", input: "Hello<br>World", want: "Hello\nWorld"},
		{name: "inline tags", input: "<p><strong>Bold</strong> and <em>italic</em></p>", want: "Bold and italic"},
		{name: "entities decoded", input: "R&amp;D team", want: "R&D team"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripMarkup(tt.input)
			if got != tt.want {
				t.Errorf("StripMarkup(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
