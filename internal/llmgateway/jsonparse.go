package llmgateway

import (
	"encoding/json"
	"regexp"
	"strings"
)

const rawResponseTruncateLen = 500

var fencedCodeBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// parseModelJSON accepts a model's free-text response and extracts a JSON
// object from it, trying three shapes in order: the response itself, a
// fenced markdown code block, and the first balanced brace expression.
// If none parse, it returns the json_parse_failed sentinel shape instead of
// an error — callers treat that as a best-effort signal, not a hard failure.
func parseModelJSON(raw string) map[string]any {
	cleaned := strings.TrimSpace(raw)

	if obj, ok := tryUnmarshalObject(cleaned); ok {
		return obj
	}

	if m := fencedCodeBlock.FindStringSubmatch(cleaned); m != nil {
		if obj, ok := tryUnmarshalObject(m[1]); ok {
			return obj
		}
	}

	if js, ok := extractFirstBalancedObject(cleaned); ok {
		if obj, ok := tryUnmarshalObject(js); ok {
			return obj
		}
	}

	return map[string]any{
		"error":        "json_parse_failed",
		"raw_response": truncate(cleaned, rawResponseTruncateLen),
	}
}

func tryUnmarshalObject(s string) (map[string]any, bool) {
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, false
	}
	return out, true
}

// extractFirstBalancedObject finds the first top-level {...} span by naive
// brace-depth counting, same approach as the teacher's eval_json.go rather
// than a backtracking regex.
func extractFirstBalancedObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start == -1 {
		return "", false
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
