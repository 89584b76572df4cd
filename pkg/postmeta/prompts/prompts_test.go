package prompts

import (
	"strings"
	"testing"
)

func TestExtractionContract(t *testing.T) {
	p := Extraction("Just got promoted!")

	for _, want := range []string{
		"raw JSON only",
		"exactly three keys",
		"`line_count`, `language`, `tags`",
		"max two text tags",
		`"English" or "Hinglish"`,
	} {
		if !strings.Contains(p, want) {
			t.Errorf("extraction prompt missing %q", want)
		}
	}
	if !strings.HasSuffix(p, "Post:\nJust got promoted!\n") {
		t.Errorf("post text should close the prompt, got %q", p[len(p)-40:])
	}
}

func TestExtractionKeepsPercentSigns(t *testing.T) {
	p := Extraction("Grew revenue 40% this year")
	if !strings.Contains(p, "Grew revenue 40% this year") {
		t.Error("post text should be embedded verbatim")
	}
	if strings.Contains(p, "%!") {
		t.Errorf("unexpected formatting artifact in %q", p)
	}
}

func TestUnificationContract(t *testing.T) {
	p := Unification("Career, Promotion")

	for _, want := range []string{
		"Title Case",
		"valid JSON only",
		`{"original_tag": "unified_tag", ...}`,
		`"Jobseekers", "Job Hunting" → "Job Search"`,
	} {
		if !strings.Contains(p, want) {
			t.Errorf("unification prompt missing %q", want)
		}
	}
	if !strings.HasSuffix(p, "Tags:\nCareer, Promotion\n") {
		t.Error("tag list should close the prompt")
	}
}
