package quizgen

import (
	"context"
	"fmt"
	"strings"

	"quizsmith/internal/models"
)

// MockProvider produces deterministic questions without any network call.
// Used in tests and as the default when no real provider is configured.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) GenerateQuiz(_ context.Context, req QuizRequest) ([]models.QuizQuestion, ProviderInfo, error) {
	info := ProviderInfo{Name: "mock", Model: "mock-quiz-v1", Key: "mock"}
	if len(req.Sections) == 0 {
		return nil, info, fmt.Errorf("no sections to quiz over")
	}
	count := req.QuestionCount
	if count <= 0 || count > len(req.Sections) {
		count = len(req.Sections)
	}
	out := make([]models.QuizQuestion, 0, count)
	for i := 0; i < count; i++ {
		s := req.Sections[i%len(req.Sections)]
		topic := s.Title
		if topic == "" {
			topic = firstWords(s.Body, 6)
		}
		out = append(out, models.QuizQuestion{
			Question:       fmt.Sprintf("Which section discusses %q?", topic),
			Choices:        []string{topic, "None of the above", "All of the above", "The glossary"},
			Answer:         0,
			SectionOrdinal: s.Ordinal,
		})
	}
	return out, info, nil
}

func firstWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}
