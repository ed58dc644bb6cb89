package workflows

import (
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"quizsmith/internal/activities"
)

const QueryGetProgress = "GetProgress"

func defaultActivityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
}

// ArtifactParseWorkflow reparses a single artifact in the background. The
// result string is the artifact's final parse status.
func ArtifactParseWorkflow(ctx workflow.Context, input ParseArtifactInput) (string, error) {
	ctx = workflow.WithActivityOptions(ctx, defaultActivityOptions())

	var out activities.ReparseArtifactOutput
	if err := workflow.ExecuteActivity(ctx, "ReparseArtifactActivity", activities.ReparseArtifactInput{
		ArtifactID: input.ArtifactID,
	}).Get(ctx, &out); err != nil {
		return "failed", err
	}
	if out.Status == "" {
		return "failed", nil
	}
	return out.Status, nil
}

// BatchReparseWorkflow reparses every unparsed or failed artifact, running a
// bounded number of child workflows at a time and exposing progress through
// a query handler.
func BatchReparseWorkflow(ctx workflow.Context, input BatchReparseInput) (BatchReparseProgress, error) {
	progress := BatchReparseProgress{PerArtifact: map[string]string{}}
	if err := workflow.SetQueryHandler(ctx, QueryGetProgress, func() (BatchReparseProgress, error) {
		return progress, nil
	}); err != nil {
		return progress, err
	}

	ctx = workflow.WithActivityOptions(ctx, defaultActivityOptions())
	var listOut activities.ListReparseableOutput
	if err := workflow.ExecuteActivity(ctx, "ListReparseableActivity", activities.ListReparseableInput{}).Get(ctx, &listOut); err != nil {
		return progress, err
	}
	ids := listOut.ArtifactIDs
	progress.Total = len(ids)

	maxChildren := input.MaxConcurrentChildren
	if maxChildren <= 0 {
		maxChildren = 3
	}

	for i := 0; i < len(ids); i += maxChildren {
		end := i + maxChildren
		if end > len(ids) {
			end = len(ids)
		}
		futures := make([]workflow.ChildWorkflowFuture, 0, end-i)
		batch := ids[i:end]
		for _, id := range batch {
			progress.PerArtifact[id] = "parsing"
			cwo := workflow.ChildWorkflowOptions{WorkflowID: "parse-" + sanitizeID(id)}
			childCtx := workflow.WithChildOptions(ctx, cwo)
			futures = append(futures, workflow.ExecuteChildWorkflow(childCtx, ArtifactParseWorkflow, ParseArtifactInput{ArtifactID: id}))
		}
		for idx, f := range futures {
			id := batch[idx]
			var status string
			if err := f.Get(ctx, &status); err != nil {
				// An errored child is still a settled one; Done must reach
				// Total so the progress query converges.
				progress.Failed++
				progress.Done++
				progress.PerArtifact[id] = "failed"
				continue
			}
			if status == "failed" {
				progress.Failed++
			}
			progress.Done++
			progress.PerArtifact[id] = status
		}
	}
	return progress, nil
}

// QuizBuildWorkflow generates a quiz over an artifact's parsed sections and
// writes the report to disk.
func QuizBuildWorkflow(ctx workflow.Context, input QuizBuildInput) (QuizBuildOutput, error) {
	ctx = workflow.WithActivityOptions(ctx, defaultActivityOptions())

	var sectionsOut activities.LoadSectionsOutput
	if err := workflow.ExecuteActivity(ctx, "LoadSectionsActivity", activities.LoadSectionsInput{
		ArtifactID: input.ArtifactID,
	}).Get(ctx, &sectionsOut); err != nil {
		return QuizBuildOutput{}, err
	}

	var quizOut activities.GenerateQuizOutput
	if err := workflow.ExecuteActivity(ctx, "GenerateQuizActivity", activities.GenerateQuizInput{
		Title:         sectionsOut.Title,
		Sections:      sectionsOut.Sections,
		QuestionCount: input.QuestionCount,
		ProviderIndex: input.ProviderIndex,
	}).Get(ctx, &quizOut); err != nil {
		return QuizBuildOutput{}, err
	}

	var reportOut activities.WriteQuizReportOutput
	if err := workflow.ExecuteActivity(ctx, "WriteQuizReportActivity", activities.WriteQuizReportInput{
		ArtifactID: input.ArtifactID,
		RunID:      input.RunID,
		Title:      sectionsOut.Title,
		Questions:  quizOut.Questions,
		Provider:   quizOut.ProviderName,
	}).Get(ctx, &reportOut); err != nil {
		return QuizBuildOutput{}, err
	}

	return QuizBuildOutput{
		ArtifactID: input.ArtifactID,
		ReportPath: reportOut.Path,
		Questions:  len(quizOut.Questions),
		Provider:   quizOut.ProviderName,
	}, nil
}

func sanitizeID(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, s)
}
