// Package extract recovers structured content from free-form model output.
// Models asked for JSON routinely wrap it in prose ("Sure! {...} Hope that
// helps!"), and models asked for code wrap it in markdown fences.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/wanderkit/wanderkit/internal/domain"
)

var codeFence = regexp.MustCompile("(?s)```(?:[a-zA-Z0-9+-]*)\\s*(.*?)```")

// JSONValue extracts the first JSON object or array embedded in text.
// It tries the whole string first, then the span from the first `{` (or `[`)
// to the last matching `}` (or `]`). Leading and trailing prose is
// discarded. Failure returns *domain.MalformedOutputError carrying the raw
// text.
func JSONValue(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if json.Valid([]byte(trimmed)) && trimmed != "" {
		return json.RawMessage(trimmed), nil
	}

	if raw, ok := span(text, '{', '}'); ok {
		return raw, nil
	}
	if raw, ok := span(text, '[', ']'); ok {
		return raw, nil
	}

	return nil, &domain.MalformedOutputError{Raw: text}
}

func span(text string, open, close byte) (json.RawMessage, bool) {
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start == -1 || end <= start {
		return nil, false
	}

	candidate := text[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return nil, false
	}
	return json.RawMessage(candidate), true
}

// Unmarshal extracts a JSON value from text and decodes it into v.
func Unmarshal(text string, v any) error {
	raw, err := JSONValue(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &domain.MalformedOutputError{Raw: text}
	}
	return nil
}

// CodeBlock returns the body of the first fenced code block, or the input
// unchanged when there is none.
func CodeBlock(text string) string {
	m := codeFence.FindStringSubmatch(text)
	if len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	return text
}

// Suggestions decodes a model response into a suggestion list. Accepts the
// expected {"suggestions": [...]} wrapper, a bare array, or any object
// holding an array of {name, type, ...} values under some other key.
func Suggestions(text string) ([]domain.Suggestion, error) {
	raw, err := JSONValue(text)
	if err != nil {
		return nil, err
	}

	var wrapped struct {
		Suggestions []domain.Suggestion `json:"suggestions"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Suggestions) > 0 {
		return wrapped.Suggestions, nil
	}

	var bare []domain.Suggestion
	if err := json.Unmarshal(raw, &bare); err == nil && len(bare) > 0 {
		return bare, nil
	}

	// Scan object values for anything that looks like a suggestion list.
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		for _, v := range obj {
			var candidates []domain.Suggestion
			if err := json.Unmarshal(v, &candidates); err != nil {
				continue
			}
			if len(candidates) > 0 && candidates[0].Name != "" && candidates[0].Type != "" {
				return candidates, nil
			}
		}
	}

	return nil, &domain.MalformedOutputError{Raw: text}
}
