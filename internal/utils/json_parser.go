package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSONObject is returned when model output holds no "{...}" span.
var ErrNoJSONObject = errors.New("no JSON object in model output")

var (
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	unquotedKeyRe   = regexp.MustCompile(`([{,]\s*)([A-Za-z_]\w*)(\s*:)`)
	controlCharRe   = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
)

// ExtractJSONObject returns the substring between the first "{" and the
// last "}" of free-form model output. Markdown fences and surrounding prose
// fall outside that span.
func ExtractJSONObject(input string) (string, bool) {
	start := strings.Index(input, "{")
	end := strings.LastIndex(input, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return input[start : end+1], true
}

// ParseJSONObject decodes the object embedded in model output into a
// generic map. A second attempt is made after fixing common formatting
// mistakes (trailing commas, unquoted keys, single quotes).
func ParseJSONObject(input string) (map[string]any, error) {
	snippet, ok := ExtractJSONObject(input)
	if !ok {
		return nil, ErrNoJSONObject
	}

	var result map[string]any
	err := json.Unmarshal([]byte(snippet), &result)
	if err == nil {
		return result, nil
	}

	if cleaned := cleanAndFixJSON(snippet); cleaned != snippet {
		if err2 := json.Unmarshal([]byte(cleaned), &result); err2 == nil {
			return result, nil
		}
	}

	return nil, fmt.Errorf("failed to parse JSON from %q: %w", truncateString(snippet, 100), err)
}

// cleanAndFixJSON attempts to fix common JSON formatting issues
func cleanAndFixJSON(input string) string {
	s := strings.TrimSpace(input)

	// Remove BOM if present
	s = strings.TrimPrefix(s, "\ufeff")

	s = trailingCommaRe.ReplaceAllString(s, "$1")

	// {word: "value"} -> {"word": "value"}
	s = unquotedKeyRe.ReplaceAllString(s, `$1"$2"$3`)

	s = fixSingleQuotes(s)

	return controlCharRe.ReplaceAllString(s, "")
}

// fixSingleQuotes converts single quotes used as string delimiters into
// double quotes, leaving apostrophes inside double-quoted strings alone.
func fixSingleQuotes(input string) string {
	var result strings.Builder
	inDouble, inSingle := false, false
	escape := false

	for _, ch := range input {
		if escape {
			result.WriteRune(ch)
			escape = false
			continue
		}

		switch {
		case ch == '\\':
			escape = true
			result.WriteRune(ch)
		case ch == '"' && !inSingle:
			inDouble = !inDouble
			result.WriteRune(ch)
		case ch == '"' && inSingle:
			result.WriteString(`\"`)
		case ch == '\'' && !inDouble:
			inSingle = !inSingle
			result.WriteRune('"')
		default:
			result.WriteRune(ch)
		}
	}

	return result.String()
}

// truncateString truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
