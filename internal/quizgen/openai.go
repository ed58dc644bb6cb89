package quizgen

import (
	"context"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"quizsmith/internal/models"
)

// OpenAIProvider generates quizzes through the OpenAI chat API (or any
// OpenAI-compatible endpoint via QUIZSMITH_OPENAI_BASE_URL).
type OpenAIProvider struct {
	keyName string
	model   string
	client  *openai.Client
}

func NewOpenAIProvider(keyName string) *OpenAIProvider {
	model := os.Getenv("QUIZSMITH_OPENAI_MODEL")
	if strings.TrimSpace(model) == "" {
		model = openai.GPT4oMini
	}
	cfg := openai.DefaultConfig(resolveOpenAIKey(keyName))
	if base := os.Getenv("QUIZSMITH_OPENAI_BASE_URL"); base != "" {
		cfg.BaseURL = base
	}
	return &OpenAIProvider{
		keyName: keyName,
		model:   model,
		client:  openai.NewClientWithConfig(cfg),
	}
}

func (o *OpenAIProvider) GenerateQuiz(ctx context.Context, req QuizRequest) ([]models.QuizQuestion, ProviderInfo, error) {
	info := ProviderInfo{Name: "openai", Model: o.model, Key: o.keyName}
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(req)},
		},
	})
	if err != nil {
		return nil, info, fmt.Errorf("openai quiz request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, info, fmt.Errorf("openai quiz response had no choices")
	}
	questions, err := ParseQuestions(resp.Choices[0].Message.Content, len(req.Sections))
	if err != nil {
		return nil, info, fmt.Errorf("parse openai quiz response: %w", err)
	}
	return questions, info, nil
}

func resolveOpenAIKey(alias string) string {
	if alias != "" {
		k := os.Getenv("QUIZSMITH_OPENAI_KEY_" + strings.ToUpper(alias))
		if k != "" {
			return k
		}
	}
	return os.Getenv("OPENAI_API_KEY")
}
