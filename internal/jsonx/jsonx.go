// Package jsonx extracts structured JSON values from free-form agent text.
package jsonx

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// fencedBlock matches ``` or ```json fenced code blocks.
var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*\n?(.*?)```")

// Extract searches text for a JSON object or array and returns the parsed
// value. Fenced code blocks are preferred (last block wins, matching the
// convention of models that restate the answer at the end); otherwise the
// first balanced object or array in the raw text is tried. Returns ok=false
// when nothing parses — callers fall back to the raw text, never error.
func Extract(text string) (any, bool) {
	for _, candidate := range candidates(text) {
		if v, ok := tryParse(candidate); ok {
			return v, true
		}
	}
	return nil, false
}

// candidates returns substrings to attempt parsing, in preference order.
func candidates(text string) []string {
	var out []string

	matches := fencedBlock.FindAllStringSubmatch(text, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		out = append(out, matches[i][1])
	}

	out = append(out, text)

	if start := strings.IndexByte(text, '{'); start >= 0 {
		if end := strings.LastIndexByte(text, '}'); end > start {
			out = append(out, text[start:end+1])
		}
	}
	if start := strings.IndexByte(text, '['); start >= 0 {
		if end := strings.LastIndexByte(text, ']'); end > start {
			out = append(out, text[start:end+1])
		}
	}
	return out
}

// tryParse parses s as a JSON object or array. Scalars are rejected: the
// contract is object-or-array extraction, not "any valid JSON".
func tryParse(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	if s[0] != '{' && s[0] != '[' {
		return nil, false
	}
	if !gjson.Valid(s) {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}
