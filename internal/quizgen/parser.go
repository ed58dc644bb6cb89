package quizgen

import (
	"encoding/json"
	"fmt"
	"strings"

	"quizsmith/internal/models"
)

// ParseQuestions decodes a model response into questions, tolerating the
// usual markdown code fences. Questions referencing a section ordinal
// outside [0, sectionCount) or an out-of-range answer index are dropped
// rather than failing the batch.
func ParseQuestions(raw string, sectionCount int) ([]models.QuizQuestion, error) {
	raw = stripFences(raw)
	start := strings.IndexByte(raw, '[')
	end := strings.LastIndexByte(raw, ']')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no json array in response")
	}

	var questions []models.QuizQuestion
	if err := json.Unmarshal([]byte(raw[start:end+1]), &questions); err != nil {
		return nil, fmt.Errorf("decode quiz response: %w", err)
	}

	out := make([]models.QuizQuestion, 0, len(questions))
	for _, q := range questions {
		if strings.TrimSpace(q.Question) == "" || len(q.Choices) < 2 {
			continue
		}
		if q.Answer < 0 || q.Answer >= len(q.Choices) {
			continue
		}
		if q.SectionOrdinal < 0 || (sectionCount > 0 && q.SectionOrdinal >= sectionCount) {
			continue
		}
		out = append(out, q)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("response contained no usable questions")
	}
	return out, nil
}

func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	}
	return strings.TrimSpace(raw)
}
