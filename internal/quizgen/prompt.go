package quizgen

import (
	"fmt"
	"strings"
)

const systemPrompt = "You are a quiz author. Write multiple-choice questions grounded strictly in the provided sections. Respond with a JSON array only, no prose: each element has question, choices (4 strings), answer (index into choices), section_ordinal (the section the question tests)."

// BuildPrompt renders the sections with their ordinals so the model can cite
// them back.
func BuildPrompt(req QuizRequest) string {
	var sb strings.Builder
	count := req.QuestionCount
	if count <= 0 {
		count = 5
	}
	fmt.Fprintf(&sb, "Write %d multiple-choice questions covering the material below.\n", count)
	if req.SourceTitle != "" {
		fmt.Fprintf(&sb, "Source: %s\n", req.SourceTitle)
	}
	sb.WriteString("\nSections:\n")
	for _, s := range req.Sections {
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(&sb, "\n[%d] %s\n%s\n", s.Ordinal, title, s.Body)
	}
	return sb.String()
}
