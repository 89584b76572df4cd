// Package jsonspan locates JSON objects embedded in free-form model output.
package jsonspan

// FirstObject returns the first complete top-level {...} span in s.
//
// The scan balances braces and skips over string literals (including escaped
// quotes) so braces inside JSON strings do not end the span early. Text
// before and after the object is ignored. If an opening brace is never
// balanced, scanning resumes after it, so a stray "{" in leading prose does
// not hide a later object. ok is false when no balanced span exists.
//
// This is not a greedy first "{" to last "}" match: for
// `{"a":"b"} and {"c":"d"}` the span is `{"a":"b"}`, where a greedy match
// would take the whole string and fail to parse.
//
// The span is not validated as JSON; callers still need to unmarshal it.
func FirstObject(s string) (span string, ok bool) {
	for start := 0; start < len(s); start++ {
		if s[start] != '{' {
			continue
		}
		if end := matchBrace(s, start); end >= 0 {
			return s[start : end+1], true
		}
	}
	return "", false
}

// matchBrace returns the index of the brace closing s[start], or -1.
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
