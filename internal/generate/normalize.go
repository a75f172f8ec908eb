package generate

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/quilldocs/quill/internal/types"
)

// ParseEnvelope best-effort parses a backend response into a JSON object.
// Recovery covers markdown code fences and surrounding prose. Returns
// (nil, false) on any failure; it never panics. expectedKey is advisory:
// an object without it still parses, since coercion handles bare shapes.
func ParseEnvelope(raw string, expectedKey string) (map[string]any, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}

	candidates := []string{raw}
	if stripped := stripCodeFences(raw); stripped != "" && stripped != raw {
		candidates = append(candidates, stripped)
	}
	if extracted := extractJSONCandidate(raw); extracted != "" && extracted != raw {
		candidates = append(candidates, extracted)
	}

	for _, candidate := range candidates {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
			return parsed, true
		}
	}
	return nil, false
}

// CoerceUnitResult normalizes any parsed response shape into a UnitResult.
// Accepted shapes: an envelope object whose expectedKey holds a non-empty
// array (first element taken), a bare object with a content field, a bare
// string (wrapped as content), or anything else (stringified). Missing
// content stays nil for the sanitize pass to fill; this function never
// invents content.
func CoerceUnitResult(parsed any, expectedKey, fallbackPrompt string) types.UnitResult {
	result := types.UnitResult{PromptUsed: fallbackPrompt}

	switch v := parsed.(type) {
	case map[string]any:
		if arr, ok := v[expectedKey].([]any); ok && len(arr) > 0 {
			if first, ok := arr[0].(map[string]any); ok {
				fillFromMap(&result, first)
				return result
			}
		}
		if _, ok := v["content"]; ok {
			fillFromMap(&result, v)
			return result
		}
		// An object with neither envelope nor content: keep whatever
		// fields match and leave content empty.
		fillFromMap(&result, v)
		return result
	case string:
		result.Content = v
		return result
	case nil:
		return result
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return result
		}
		result.Content = string(data)
		return result
	}
}

func fillFromMap(result *types.UnitResult, m map[string]any) {
	if name, ok := m["name"].(string); ok {
		result.Name = name
	}
	if content, ok := m["content"]; ok && content != nil {
		result.Content = content
	}
	if p, ok := m["prompt_used"].(string); ok && p != "" {
		result.PromptUsed = p
	}
	if p, ok := m["generated_prompt"].(string); ok && p != "" {
		result.GeneratedPrompt = p
	}
}

var (
	leadingHTMLHeadingRe = regexp.MustCompile(`(?is)^\s*<h[1-6][^>]*>.*?</h[1-6]>\s*`)
	underlineHeadingRe   = regexp.MustCompile(`^\s*[A-Z0-9 ,\-_]{3,}\n[-=]{3,}\s*`)
)

// StripLeadingHeading optionally removes a single leading heading block
// (an h1..h6 tag or an underline-style plain-text heading). With force
// false, the default everywhere in the pipeline, text passes through
// unchanged to preserve user and AI formatting. force=true is an opt-in
// cleanup primitive.
func StripLeadingHeading(text string, force bool) string {
	if !force {
		return text
	}
	text = leadingHTMLHeadingRe.ReplaceAllString(text, "")
	text = underlineHeadingRe.ReplaceAllString(text, "")
	return text
}

// stripCodeFences removes a surrounding markdown code fence, returning ""
// when the text is not fenced.
func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return ""
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return ""
	}

	// Drop first fence line.
	lines = lines[1:]
	// Drop trailing fence if present.
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// extractJSONCandidate pulls the outermost braced region out of text that
// surrounds JSON with prose.
func extractJSONCandidate(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ""
	}

	start := strings.Index(trimmed, "{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(trimmed, "}")
	if end < start {
		return ""
	}
	return strings.TrimSpace(trimmed[start : end+1])
}

// normalizeSavedContent preserves manually-saved HTML/text as-is, parsing
// it only when it is genuinely a JSON object or array.
func normalizeSavedContent(content any) any {
	s, ok := content.(string)
	if !ok {
		return content
	}
	trimmed := strings.TrimSpace(s)
	looksJSON := (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]"))
	if !looksJSON {
		return s
	}
	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return s
	}
	return parsed
}
