package tags

import (
	"errors"
	"reflect"
	"testing"

	"github.com/cognicore/postmeta/pkg/postmeta/internalerr"
)

func TestApplyCollapsesDuplicates(t *testing.T) {
	m := TagMap{"Career": "Career Growth", "Promotion": "Career Growth"}

	got, err := m.Apply([]string{"Career", "Promotion"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"Career Growth"}) {
		t.Errorf("Apply = %v, want [Career Growth]", got)
	}
}

func TestApplyKeepsFirstOccurrenceOrder(t *testing.T) {
	m := TagMap{"b": "Beta", "a": "Alpha", "bb": "Beta"}

	got, err := m.Apply([]string{"b", "a", "bb"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"Beta", "Alpha"}) {
		t.Errorf("Apply = %v, want [Beta Alpha]", got)
	}
}

func TestApplyMissNamesTag(t *testing.T) {
	m := TagMap{"Career": "Career Growth"}

	_, err := m.Apply([]string{"Career", "Hiring"})
	if !errors.Is(err, internalerr.ErrTagMapIncomplete) {
		t.Fatalf("expected ErrTagMapIncomplete, got %v", err)
	}
	var inc *internalerr.TagMapIncompleteError
	if !errors.As(err, &inc) || inc.Tag != "Hiring" {
		t.Errorf("error should name the missing tag, got %v", err)
	}
}

func TestApplyRejectsUnmappedCanonicalLookalike(t *testing.T) {
	m := TagMap{"Career": "Career Growth"}

	_, err := m.Apply([]string{"Career", "Career Growth"})
	var inc *internalerr.TagMapIncompleteError
	if !errors.As(err, &inc) || inc.Tag != "Career Growth" {
		t.Fatalf("raw tag without an entry must be a miss, got %v", err)
	}
}

func TestReapplyIdempotent(t *testing.T) {
	m := TagMap{
		"Jobseekers":  "Job Search",
		"Job Hunting": "Job Search",
		"Motivation":  "Motivation",
		"Inspiration": "Motivation",
	}

	once, err := m.Apply([]string{"Jobseekers", "Inspiration", "Job Hunting"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	twice, err := m.Reapply(once)
	if err != nil {
		t.Fatalf("Reapply: %v", err)
	}
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Reapply not idempotent: %v then %v", once, twice)
	}
	if _, err := m.Apply(once); !errors.Is(err, internalerr.ErrTagMapIncomplete) {
		t.Errorf("strict Apply should not accept canonical values that are not keys, got %v", err)
	}
}

func TestReapplyMissNamesTag(t *testing.T) {
	m := TagMap{"Career": "Career Growth"}

	_, err := m.Reapply([]string{"Career Growth", "Hiring"})
	var inc *internalerr.TagMapIncompleteError
	if !errors.As(err, &inc) || inc.Tag != "Hiring" {
		t.Errorf("expected miss on Hiring, got %v", err)
	}
}

func TestApplyEmpty(t *testing.T) {
	got, err := TagMap{}.Apply(nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no tags, got %v", got)
	}
	if got == nil {
		t.Error("Apply should return an empty slice, not nil, so it encodes as []")
	}
}

func TestMissingAndCanonical(t *testing.T) {
	m := TagMap{"a": "X", "b": "X", "c": "Y"}

	if got := m.Missing([]string{"a", "d", "c", "b0"}); !reflect.DeepEqual(got, []string{"b0", "d"}) {
		t.Errorf("Missing = %v", got)
	}
	if got := m.Canonical(); !reflect.DeepEqual(got, []string{"X", "Y"}) {
		t.Errorf("Canonical = %v", got)
	}
}

func TestDistinct(t *testing.T) {
	got := Distinct([][]string{{"Career", "Promotion"}, {"Career"}, nil, {"AI"}})
	want := []string{"AI", "Career", "Promotion"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Distinct = %v, want %v", got, want)
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"career growth", "Career Growth"},
		{"Career Growth", "Career Growth"},
		{"AI tools", "AI Tools"},
		{"job search", "Job Search"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := TitleCase(tt.in); got != tt.want {
			t.Errorf("TitleCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if !IsTitleCase("Job Search") {
		t.Error("Job Search should be Title Case")
	}
	if IsTitleCase("job search") {
		t.Error("job search should not be Title Case")
	}
}
