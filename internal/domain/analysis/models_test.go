package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalogResolve(t *testing.T) {
	c := NewCatalog("gemini-2.5-flash", []string{"gemini-2.5-flash", "gemini-flash-latest", "gemini-2.5-pro"})

	assert.Equal(t, "gemini-2.5-pro", c.Resolve("gemini-2.5-pro"))
	assert.Equal(t, "gemini-2.5-pro", c.Resolve("models/gemini-2.5-pro"))
	assert.Equal(t, "gemini-flash-latest", c.Resolve(" Models/Gemini-Flash-Latest "))
	assert.Equal(t, "gemini-2.5-flash", c.Resolve(""))
	assert.Equal(t, "gemini-2.5-flash", c.Resolve("gpt-4o"))
	assert.Equal(t, "gemini-2.5-flash", c.Resolve("../../v1/admin"))

	assert.True(t, c.Allowed("models/gemini-2.5-pro"))
	assert.False(t, c.Allowed("gemini-1.0"))
	assert.Equal(t, []string{"gemini-2.5-flash", "gemini-flash-latest", "gemini-2.5-pro"}, c.Models())
}

func TestCatalogDefaultAddedToAllowList(t *testing.T) {
	c := NewCatalog("gpt-4o-mini", []string{"gpt-4o"})
	assert.Equal(t, "gpt-4o-mini", c.Default())
	assert.True(t, c.Allowed("gpt-4o-mini"))
	assert.Equal(t, "gpt-4o-mini", c.Resolve("unknown"))
}

func TestCatalogEmptyDefault(t *testing.T) {
	c := NewCatalog("", []string{"a", "b"})
	assert.Equal(t, "a", c.Default())
}

func TestValidateText(t *testing.T) {
	assert.NoError(t, ValidateText("An essay."))
	assert.NoError(t, ValidateText(strings.Repeat("a", MaxTextBytes)))

	assert.EqualError(t, ValidateText(" \n\t"), "Text is required")
	assert.Error(t, ValidateText(strings.Repeat("a", MaxTextBytes+1)))
	assert.Error(t, ValidateText("\xff\xfe"))
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "abc", Excerpt("abcdef", 3))
	assert.Equal(t, "abc", Excerpt("abc", 3))
	assert.Equal(t, "ab", Excerpt("ab", 5))
	assert.Equal(t, "héé", Excerpt("hééllo", 3))
	assert.Equal(t, "full", Excerpt("full", 0))
	assert.Equal(t, "", Excerpt("", 10))
}
