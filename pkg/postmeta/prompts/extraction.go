package prompts

import "fmt"

// extractionTemplate asks for the three metadata fields of a single post.
// The single format verb is the sanitized post text.
const extractionTemplate = `
You are given a LinkedIn post. Extract metadata in **raw JSON only**, no explanation or extra text.

Requirements:
1. Output must be valid JSON — no preamble or follow-up text.
2. Return exactly three keys: ` + "`line_count`, `language`, `tags`" + `
3. ` + "`tags`" + ` must be an array with max two text tags
4. Language must be either "English" or "Hinglish"

Post:
%s
`

// Extraction returns the metadata extraction prompt for one post.
func Extraction(post string) string {
	return fmt.Sprintf(extractionTemplate, post)
}
