package prompts

import "fmt"

// unificationTemplate asks for a raw tag -> canonical tag mapping.
// The single format verb is the comma-joined list of distinct raw tags.
const unificationTemplate = `You will be given a list of tags. You need to unify them with the following rules:
1. Merge similar tags to create a concise list. Examples:
   - "Jobseekers", "Job Hunting" → "Job Search"
   - "Motivation", "Inspiration" → "Motivation"
2. Use Title Case for each tag.
3. Return **valid JSON only**, no preamble or extra text.
4. JSON format: {"original_tag": "unified_tag", ...}

Tags:
%s
`

// Unification returns the tag canonicalization prompt for a batch.
func Unification(tagList string) string {
	return fmt.Sprintf(unificationTemplate, tagList)
}
