// Package quizgen calls the external LLM collaborator that turns parsed
// sections into quiz questions. Sections are its sole input, and every
// question carries the ordinal of the section it was drawn from, so results
// stay traceable.
package quizgen

import (
	"context"

	"quizsmith/internal/models"
)

type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Key   string `json:"key"`
}

type QuizRequest struct {
	SourceTitle   string           `json:"source_title,omitempty"`
	Sections      []models.Section `json:"sections"`
	QuestionCount int              `json:"question_count"`
}

type Provider interface {
	GenerateQuiz(ctx context.Context, req QuizRequest) ([]models.QuizQuestion, ProviderInfo, error)
}
