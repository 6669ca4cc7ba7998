package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserPromptCarriesContextAndExcerpt(t *testing.T) {
	p := User("The industrial revolution...", "  History 101 essay ")
	assert.Contains(t, p, "Assignment context: History 101 essay\n")
	assert.Contains(t, p, "The industrial revolution...")
	assert.True(t, strings.HasSuffix(p, "Respond with the JSON object per schema."))
}

func TestSystemPromptNamesReplyFields(t *testing.T) {
	s := System()
	assert.Contains(t, s, `"ai_score"`)
	assert.Contains(t, s, `"reasoning"`)
}
