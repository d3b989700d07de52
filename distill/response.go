// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package distill

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/poiesic/distillery/core"
)

// extraction is the reply shape requested by the extraction prompt. Fields
// are raw so that a list in place of a string can still be accepted.
type extraction struct {
	ThreadSummary json.RawMessage `json:"thread_summary"`
	UserLearning  json.RawMessage `json:"user_learning"`
	ToolLearning  json.RawMessage `json:"tool_learning"`
	DataLearning  json.RawMessage `json:"data_learning"`
}

// parseFacets decodes a model reply into Facets.
func parseFacets(reply string) (core.Facets, error) {
	text := extractObject(stripFences(reply))
	if text == "" {
		return core.Facets{}, fmt.Errorf("%w: no JSON object in reply", ErrMalformedResponse)
	}

	var ex extraction
	if err := json.Unmarshal([]byte(text), &ex); err != nil {
		if err := json.Unmarshal([]byte(repairJSON(text)), &ex); err != nil {
			return core.Facets{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
	}
	if ex.ThreadSummary == nil {
		return core.Facets{}, fmt.Errorf("%w: thread_summary missing", ErrMalformedResponse)
	}

	var (
		facets core.Facets
		err    error
	)
	fields := []struct {
		raw json.RawMessage
		dst *string
	}{
		{ex.ThreadSummary, &facets.Summary},
		{ex.UserLearning, &facets.UserLearning},
		{ex.ToolLearning, &facets.ToolLearning},
		{ex.DataLearning, &facets.DataLearning},
	}
	for _, f := range fields {
		if *f.dst, err = flatten(f.raw); err != nil {
			return core.Facets{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
	}
	return facets, nil
}

// flatten accepts a string, a list of strings or null.
func flatten(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return "", fmt.Errorf("facet is neither text nor a list: %s", raw)
	}
	lines := make([]string, 0, len(list))
	for _, item := range list {
		if item = strings.TrimSpace(item); item != "" {
			lines = append(lines, "- "+strings.TrimPrefix(item, "- "))
		}
	}
	return strings.Join(lines, "\n"), nil
}

// stripFences removes a surrounding markdown code fence.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// extractObject returns the text between the first '{' and the last '}'.
func extractObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// repairJSON attempts to fix common JSON formatting issues from LLM responses.
// It specifically handles missing opening quotes before keys in JSON objects.
func repairJSON(s string) string {
	// Pattern: after { or , followed by optional whitespace, then a word followed by ":
	// Example: `, user_learning":` -> `, "user_learning":`
	result := []rune(s)
	fixed := make([]rune, 0, len(result)+100)

	i := 0
	for i < len(result) {
		ch := result[i]

		if ch == '{' || ch == ',' {
			fixed = append(fixed, ch)
			i++

			for i < len(result) && (result[i] == ' ' || result[i] == '\n' || result[i] == '\t') {
				fixed = append(fixed, result[i])
				i++
			}

			// unquoted key: starts with a letter
			if i < len(result) && result[i] != '"' && isLetter(result[i]) {
				keyStart := i
				for i < len(result) && (isLetter(result[i]) || result[i] == '_') {
					i++
				}
				if i+1 < len(result) && result[i] == '"' && result[i+1] == ':' {
					// closing quote is already there
					fixed = append(fixed, '"')
					fixed = append(fixed, result[keyStart:i]...)
					continue
				}
				fixed = append(fixed, result[keyStart:i]...)
			}
		} else {
			fixed = append(fixed, ch)
			i++
		}
	}

	return string(fixed)
}

// isLetter returns true if the rune is an ASCII letter.
func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// cleanBullets normalizes a refinement reply to its bullet lines.
func cleanBullets(reply string) string {
	text := stripFences(reply)
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "* ") || strings.HasPrefix(line, "• ") {
			line = "- " + strings.TrimSpace(line[strings.Index(line, " ")+1:])
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
