package prompt

import (
	"fmt"
	"strings"
)

// System gives the scoring model its role and the strict reply schema.
func System() string {
	return `You are an academic integrity analyst. Estimate how likely it is that the submitted text was produced by a generative AI model rather than written by a student.

Requirements:
- Reply with one valid JSON object only. No commentary outside the object.
- "ai_score" is an integer from 0 (certainly human) to 100 (certainly AI generated).
- "reasoning" is a short Markdown explanation. Cite concrete signals: uniform sentence rhythm, generic transitions, hedging, missing personal detail, factual slips, tone shifts.
- Judge the text against the assignment context. Do not penalise correct formatting on its own.

Schema:
{
  "ai_score": <integer 0-100>,
  "reasoning": "<markdown string>"
}`
}

// User wraps an already bounded excerpt of the submission with its assignment context.
func User(excerpt, assignment string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Assignment context: %s\n\n", strings.TrimSpace(assignment))
	b.WriteString("Submission text:\n\"\"\"\n")
	b.WriteString(excerpt)
	b.WriteString("\n\"\"\"\n\nRespond with the JSON object per schema.")
	return b.String()
}
