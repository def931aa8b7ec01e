package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// ErrNoJSONFound is returned when no valid JSON object/array is found in the input
var ErrNoJSONFound = errors.New("no valid JSON object or array found in response")

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.+?)\\s*```")

// ExtractJSON pulls the first valid JSON object or array out of a model
// reply that may be wrapped in markdown fences or surrounded by prose
func ExtractJSON(response string) (string, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		return "", ErrNoJSONFound
	}

	cleaned := extractFromMarkdown(response)
	if json.Valid([]byte(cleaned)) && (strings.HasPrefix(cleaned, "{") || strings.HasPrefix(cleaned, "[")) {
		return cleaned, nil
	}

	if candidate := extractJSONByBrackets(cleaned); candidate != "" && json.Valid([]byte(candidate)) {
		return candidate, nil
	}

	if candidate := aggressiveExtract(response); candidate != "" {
		return candidate, nil
	}

	slog.Debug("no JSON found in model reply", "length", len(response))
	return "", fmt.Errorf("%w: response length=%d", ErrNoJSONFound, len(response))
}

// ExtractJSONTo extracts JSON from response and unmarshals it into the target
func ExtractJSONTo(response string, target interface{}) error {
	jsonStr, err := ExtractJSON(response)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(jsonStr), target)
}

// extractFromMarkdown removes markdown code block formatting
func extractFromMarkdown(s string) string {
	if m := fencedBlock.FindStringSubmatch(s); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(s)
}

// extractJSONByBrackets uses bracket matching to find the first complete value
func extractJSONByBrackets(s string) string {
	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return ""
	}
	openChar, closeChar := byte('{'), byte('}')
	if s[start] == '[' {
		openChar, closeChar = '[', ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch c {
		case openChar:
			depth++
		case closeChar:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// aggressiveExtract tries the span between the first opening and last closing bracket
func aggressiveExtract(s string) string {
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		first := strings.Index(s, pair[0])
		last := strings.LastIndex(s, pair[1])
		if first != -1 && last > first {
			candidate := s[first : last+1]
			if json.Valid([]byte(candidate)) {
				return candidate
			}
		}
	}
	return ""
}
