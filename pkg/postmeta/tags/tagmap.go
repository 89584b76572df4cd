package tags

import (
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cognicore/postmeta/pkg/postmeta/internalerr"
)

// TagMap maps raw tags, exactly as extracted, to canonical Title Case tags.
type TagMap map[string]string

// Apply rewrites raw tags through the map. The result is a set: canonical
// duplicates collapse and first-occurrence order is kept. Every tag must be
// a key; a miss is a TagMapIncompleteError naming the tag, even when the tag
// happens to equal another entry's canonical value.
func (m TagMap) Apply(raw []string) ([]string, error) {
	return m.rewrite(raw, nil)
}

// Reapply rewrites tags that may already be canonical. Canonical tags are
// terminal: a tag that is not a key but equals one of the map's canonical
// values is kept as-is, so Reapply(Apply(x)) == Apply(x). Any other miss is
// a TagMapIncompleteError.
func (m TagMap) Reapply(tags []string) ([]string, error) {
	return m.rewrite(tags, m.canonicalSet())
}

func (m TagMap) rewrite(tags []string, terminal map[string]struct{}) ([]string, error) {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))

	for _, tag := range tags {
		c, ok := m[tag]
		if !ok {
			if _, isCanonical := terminal[tag]; !isCanonical {
				return nil, &internalerr.TagMapIncompleteError{Tag: tag}
			}
			c = tag
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}

// Missing returns the raw tags that have no entry, sorted.
func (m TagMap) Missing(raw []string) []string {
	var missing []string
	for _, tag := range raw {
		if _, ok := m[tag]; !ok {
			missing = append(missing, tag)
		}
	}
	sort.Strings(missing)
	return missing
}

// Canonical returns the distinct canonical tags, sorted.
func (m TagMap) Canonical() []string {
	set := m.canonicalSet()
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (m TagMap) canonicalSet() map[string]struct{} {
	set := make(map[string]struct{}, len(m))
	for _, c := range m {
		set[c] = struct{}{}
	}
	return set
}

// Distinct returns the union of all tag sets, sorted.
func Distinct(tagSets [][]string) []string {
	set := make(map[string]struct{})
	for _, ts := range tagSets {
		for _, tag := range ts {
			set[tag] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for tag := range set {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// TitleCase upper-cases the first letter of every word and leaves the rest
// alone, so acronyms like "AI" survive.
func TitleCase(s string) string {
	return cases.Title(language.English, cases.NoLower).String(s)
}

// IsTitleCase reports whether s is already in Title Case.
func IsTitleCase(s string) bool {
	return TitleCase(s) == s
}
