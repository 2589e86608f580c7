package extractor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"voice-features-go/internal/types"
)

// ErrInvalidResponse marks engine text that does not hold a JSON object.
var ErrInvalidResponse = errors.New("engine response is not a JSON object")

// ParseResult decodes the engine text into a flat feature map. Markdown
// fences are tolerated, as is prose around a single object; a bare array or
// scalar is not.
func ParseResult(text string) (types.ExtractionResult, error) {
	s := stripFences(text)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidResponse)
	}

	var out types.ExtractionResult
	if err := json.Unmarshal([]byte(s), &out); err == nil && out != nil {
		return out, nil
	}
	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
		return nil, fmt.Errorf("%w: %s", ErrInvalidResponse, preview(s))
	}

	candidate := extractJSON(s)
	if candidate == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidResponse, preview(s))
	}
	out = nil
	if err := json.Unmarshal([]byte(candidate), &out); err != nil || out == nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidResponse, preview(s))
	}
	return out, nil
}

func stripFences(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the info string ("json", "JSON", ...)
		s = s[nl+1:]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// extractJSON returns the first balanced {...} in s, skipping braces inside
// string literals.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
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
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[start : i+1])
			}
		}
	}
	return ""
}

func preview(s string) string {
	const limit = 120
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
