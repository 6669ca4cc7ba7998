package analysis

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FallbackReasoning is used when the provider returned nothing usable at all.
const FallbackReasoning = "Analysis failed to parse."

// MissingReasoning is used when the score parsed but no reasoning came with it.
const MissingReasoning = "No reasoning was provided by the model."

// Verdict is a parsed provider reply.
type Verdict struct {
	AIScore   int
	Reasoning string
	Degraded  bool
}

// ParseProviderText extracts {"ai_score", "reasoning"} from free-form model
// output. It never fails: unparseable output degrades to score 0 with the raw
// text as reasoning.
func ParseProviderText(raw string) Verdict {
	body := stripCodeFences(raw)

	obj, ok := decodeObject(body)
	if !ok {
		return degraded(raw)
	}

	score, ok := numberField(obj, "ai_score")
	if !ok {
		return degraded(raw)
	}

	reasoning := MissingReasoning
	if v, ok := obj["reasoning"].(string); ok && strings.TrimSpace(v) != "" {
		reasoning = v
	}

	return Verdict{AIScore: ClampScore(score), Reasoning: reasoning}
}

// ClampScore rounds and bounds a score into 0..100.
func ClampScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	r := math.Round(v)
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return int(r)
}

func degraded(raw string) Verdict {
	reasoning := strings.TrimSpace(raw)
	if reasoning == "" {
		reasoning = FallbackReasoning
	}
	return Verdict{AIScore: 0, Reasoning: reasoning, Degraded: true}
}

func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func decodeObject(s string) (map[string]any, bool) {
	if s == "" {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err == nil && obj != nil {
		return obj, true
	}
	// Models sometimes wrap the object in prose; try the outermost braces.
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	obj = nil
	if err := json.Unmarshal([]byte(s[start:end+1]), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func numberField(obj map[string]any, key string) (float64, bool) {
	switch v := obj[key].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "%"), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
