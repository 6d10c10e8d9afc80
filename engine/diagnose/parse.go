package diagnose

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// SnippetLen bounds the raw model output included in a parse failure.
const SnippetLen = 300

var (
	errNotJSON  = errors.New("model output is not a JSON object")
	errNoCauses = errors.New("model output has no causes")
	errNoTitle  = errors.New("model output has a cause without a title")
)

type modelOutput struct {
	SummaryTitle string  `json:"summary_title"`
	Causes       []Cause `json:"causes"`
}

// parseOutput decodes raw strictly, then retries on each top-level balanced
// brace span in order to tolerate prose around the object. Anything short of
// a complete cause list is an error.
func parseOutput(raw string) (modelOutput, error) {
	var out modelOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		spans := objectSpans(raw)
		if len(spans) == 0 {
			return modelOutput{}, errNotJSON
		}
		var lastErr error
		for _, span := range spans {
			out = modelOutput{}
			if lastErr = json.Unmarshal([]byte(span), &out); lastErr == nil {
				break
			}
		}
		if lastErr != nil {
			return modelOutput{}, fmt.Errorf("%w: %v", errNotJSON, lastErr)
		}
	}
	if len(out.Causes) == 0 {
		return modelOutput{}, errNoCauses
	}
	for i := range out.Causes {
		c := &out.Causes[i]
		c.Title = strings.TrimSpace(c.Title)
		if c.Title == "" {
			return modelOutput{}, errNoTitle
		}
		c.Severity = strings.ToLower(strings.TrimSpace(c.Severity))
		c.Difficulty = strings.ToLower(strings.TrimSpace(c.Difficulty))
	}
	return out, nil
}

// objectSpans returns the top-level balanced {...} spans of s in order.
// Braces inside JSON strings do not count. An unclosed trailing span is
// dropped.
func objectSpans(s string) []string {
	var (
		spans    []string
		depth    int
		start    int
		inString bool
		escaped  bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				spans = append(spans, s[start:i+1])
			}
		}
	}
	return spans
}

// snippet returns at most n bytes of s without splitting a rune.
func snippet(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
