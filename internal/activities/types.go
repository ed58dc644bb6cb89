package activities

import "quizsmith/internal/models"

type ListReparseableInput struct{}

type ListReparseableOutput struct {
	ArtifactIDs []string `json:"artifact_ids"`
}

type ReparseArtifactInput struct {
	ArtifactID string `json:"artifact_id"`
}

type ReparseArtifactOutput struct {
	ArtifactID string `json:"artifact_id"`
	Status     string `json:"status"`
	FailReason string `json:"fail_reason,omitempty"`
	Sections   int    `json:"sections"`
}

type LoadSectionsInput struct {
	ArtifactID string `json:"artifact_id"`
}

type LoadSectionsOutput struct {
	Title    string           `json:"title"`
	Sections []models.Section `json:"sections"`
}

type GenerateQuizInput struct {
	Title         string           `json:"title"`
	Sections      []models.Section `json:"sections"`
	QuestionCount int              `json:"question_count"`
	ProviderIndex int              `json:"provider_index"`
}

type GenerateQuizOutput struct {
	Questions    []models.QuizQuestion `json:"questions"`
	ProviderName string                `json:"provider_name"`
	Model        string                `json:"model"`
}

type WriteQuizReportInput struct {
	ArtifactID string                `json:"artifact_id"`
	RunID      string                `json:"run_id"`
	Title      string                `json:"title"`
	Questions  []models.QuizQuestion `json:"questions"`
	Provider   string                `json:"provider"`
}

type WriteQuizReportOutput struct {
	Path string `json:"path"`
}
