package optimizer

import (
	"encoding/json"
	"strings"

	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/models"
)

// ParseResult extracts and decodes an OptimizerResult from a model response
// that may be wrapped in prose or a fenced code block. It tries a fenced JSON
// block first, then the largest top-level {...} span. Anything unparseable is
// a *MalformedOutputError carrying the raw text.
func ParseResult(text string) (*models.OptimizerResult, error) {
	candidate := fencedBlock(text)
	if candidate == "" {
		candidate = largestObjectSpan(text)
	}
	if candidate == "" {
		return nil, &MalformedOutputError{Reason: "no JSON object found in response", Raw: text}
	}

	var result models.OptimizerResult
	if err := json.Unmarshal([]byte(candidate), &result); err != nil {
		// The fenced block may have been truncated or prose-polluted; fall
		// back to the widest brace span before giving up.
		if span := largestObjectSpan(text); span != "" && span != candidate {
			if err2 := json.Unmarshal([]byte(span), &result); err2 == nil {
				return &result, nil
			}
		}
		return nil, &MalformedOutputError{Reason: "invalid JSON: " + err.Error(), Raw: text}
	}
	return &result, nil
}

// fencedBlock returns the contents of the first ```json (or bare ```) fenced
// block, or "" when none is present. Models often wrap JSON in fences even
// when told not to.
func fencedBlock(text string) string {
	text = strings.TrimSpace(text)

	start := strings.Index(text, "```json")
	skip := len("```json")
	if start < 0 {
		start = strings.Index(text, "```")
		skip = len("```")
	}
	if start < 0 {
		return ""
	}

	body := text[start+skip:]
	// Skip a language identifier on the opening line of a bare fence.
	if nl := strings.Index(body, "\n"); nl >= 0 {
		firstLine := strings.TrimSpace(body[:nl])
		if firstLine != "" && !strings.ContainsAny(firstLine, "{ ") && len(firstLine) < 20 {
			body = body[nl+1:]
		}
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// largestObjectSpan returns the largest balanced top-level {...} span in
// text, honouring string literals and escapes, or "" when none closes.
func largestObjectSpan(text string) string {
	best := ""
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i, r := range text {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				if depth == 0 {
					start = i
				}
				depth++
			}
		case '}':
			if !inString && depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					span := text[start : i+1]
					if len(span) > len(best) {
						best = span
					}
				}
			}
		}
	}
	return best
}
