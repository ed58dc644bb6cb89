package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"quizsmith/internal/util"
)

// textFieldNames are checked in order so extraction is deterministic
// regardless of map iteration order.
var textFieldNames = []string{"text", "content", "body"}

var listFieldNames = []string{"sections", "paragraphs", "texts", "items"}

// JSONAdapter accepts payloads carrying a single text field or a list of
// them: a bare string, an object with a text/content/body field, an array of
// strings or such objects, or an object wrapping such an array. Anything
// else is a schema mismatch.
type JSONAdapter struct{}

func (JSONAdapter) Extract(raw []byte) (Extraction, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return Extraction{}, fmt.Errorf("%w: invalid json: %v", ErrSchemaMismatch, err)
	}

	parts := collectText(v)
	text := util.SanitizeText(strings.Join(parts, "\n\n"))
	if text == "" {
		return Extraction{}, fmt.Errorf("%w: expected one of %v", ErrSchemaMismatch, textFieldNames)
	}
	return Extraction{Text: text, Encoding: "utf-8"}, nil
}

func collectText(v any) []string {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	case []any:
		var out []string
		for _, item := range t {
			out = append(out, collectText(item)...)
		}
		return out
	case map[string]any:
		var out []string
		for _, key := range textFieldNames {
			if s, ok := t[key].(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		for _, key := range listFieldNames {
			if list, ok := t[key].([]any); ok {
				for _, item := range list {
					out = append(out, collectText(item)...)
				}
			}
		}
		return out
	}
	return nil
}
