// internal/llmutil/parser.go
package llmutil

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Model replies routinely wrap JSON in markdown fences or conversational
// text. These helpers dig the payload out before unmarshaling.

// fencedRe extracts the body of a markdown code fence. \x60 is a backtick;
// Go raw strings cannot contain one.
var fencedRe = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*(.*?)\\s*\x60\x60\x60")

// ExtractJSON returns the most plausible JSON array or object embedded in an
// LLM reply: the first fenced block if present, otherwise the outermost
// bracket-delimited span, otherwise the trimmed reply unchanged.
func ExtractJSON(response string) string {
	response = strings.TrimSpace(response)

	if strings.HasPrefix(response, "```") {
		if m := fencedRe.FindStringSubmatch(response); len(m) > 1 {
			return strings.TrimSpace(m[1])
		}
	}

	if strings.HasPrefix(response, "[") || strings.HasPrefix(response, "{") {
		return response
	}

	for _, pair := range [][2]string{{"[", "]"}, {"{", "}"}} {
		open := strings.Index(response, pair[0])
		end := strings.LastIndex(response, pair[1])
		if open != -1 && end > open {
			return response[open : end+1]
		}
	}
	return response
}

// ParseJSONArray unmarshals an LLM reply expected to contain a JSON array of
// T, tolerating markdown wrapping and surrounding prose.
func ParseJSONArray[T any](response string) ([]T, error) {
	payload := ExtractJSON(response)
	var items []T
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil, fmt.Errorf("response is not a JSON array: %w (payload: %s)", err, truncate(payload, 300))
	}
	return items, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
