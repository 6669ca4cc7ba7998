package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProviderText_FencedJSON(t *testing.T) {
	v := ParseProviderText("```json\n{\"ai_score\": 73, \"reasoning\": \"**foo**\"}\n```")
	assert.Equal(t, Verdict{AIScore: 73, Reasoning: "**foo**"}, v)
}

func TestParseProviderText_PlainJSON(t *testing.T) {
	v := ParseProviderText(`{"ai_score": 12, "reasoning": "varied sentence length"}`)
	assert.False(t, v.Degraded)
	assert.Equal(t, 12, v.AIScore)
	assert.Equal(t, "varied sentence length", v.Reasoning)
}

func TestParseProviderText_ObjectWrappedInProse(t *testing.T) {
	v := ParseProviderText("Here is my answer:\n{\"ai_score\": 40, \"reasoning\": \"mixed\"}\nThanks.")
	assert.False(t, v.Degraded)
	assert.Equal(t, 40, v.AIScore)
}

func TestParseProviderText_NotJSON(t *testing.T) {
	raw := "I cannot evaluate this text."
	v := ParseProviderText(raw)
	require.True(t, v.Degraded)
	assert.Equal(t, 0, v.AIScore)
	assert.Equal(t, raw, v.Reasoning)
}

func TestParseProviderText_Empty(t *testing.T) {
	for _, raw := range []string{"", "   ", "```json\n```"} {
		v := ParseProviderText(raw)
		assert.True(t, v.Degraded, raw)
		assert.Equal(t, 0, v.AIScore)
		assert.NotEmpty(t, v.Reasoning)
	}
	assert.Equal(t, FallbackReasoning, ParseProviderText("").Reasoning)
}

func TestParseProviderText_FieldTypes(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		score    int
		degraded bool
	}{
		{"string score", `{"ai_score": "88", "reasoning": "x"}`, 88, false},
		{"percent score", `{"ai_score": "65%", "reasoning": "x"}`, 65, false},
		{"fractional", `{"ai_score": 49.6, "reasoning": "x"}`, 50, false},
		{"above range", `{"ai_score": 140, "reasoning": "x"}`, 100, false},
		{"below range", `{"ai_score": -3, "reasoning": "x"}`, 0, false},
		{"missing score", `{"reasoning": "x"}`, 0, true},
		{"bool score", `{"ai_score": true, "reasoning": "x"}`, 0, true},
		{"array", `[1,2,3]`, 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := ParseProviderText(tc.raw)
			assert.Equal(t, tc.score, v.AIScore)
			assert.Equal(t, tc.degraded, v.Degraded)
		})
	}
}

func TestParseProviderText_MissingReasoning(t *testing.T) {
	v := ParseProviderText(`{"ai_score": 20}`)
	assert.False(t, v.Degraded)
	assert.Equal(t, MissingReasoning, v.Reasoning)

	v = ParseProviderText(`{"ai_score": 20, "reasoning": 5}`)
	assert.Equal(t, MissingReasoning, v.Reasoning)
}
