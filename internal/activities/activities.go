package activities

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"quizsmith/internal/config"
	"quizsmith/internal/ingest"
	"quizsmith/internal/models"
	"quizsmith/internal/parser"
	"quizsmith/internal/quizgen"
	"quizsmith/internal/storage"
	"quizsmith/internal/util"
)

type Activities struct {
	cfg       config.Config
	svc       *ingest.Service
	artifacts *storage.ArtifactRepo
	quiz      *quizgen.Manager
}

func New(cfg config.Config, db *storage.DB, svc *ingest.Service) (*Activities, error) {
	qm, err := quizgen.NewManager(cfg.QuizProviders)
	if err != nil {
		return nil, err
	}
	return &Activities{
		cfg:       cfg,
		svc:       svc,
		artifacts: storage.NewArtifactRepo(db),
		quiz:      qm,
	}, nil
}

func (a *Activities) ListReparseableActivity(ctx context.Context, _ ListReparseableInput) (ListReparseableOutput, error) {
	artifacts, err := a.artifacts.ListArtifactsByStatus(ctx, []string{models.ParseStatusUnparsed, models.ParseStatusFailed})
	if err != nil {
		return ListReparseableOutput{}, err
	}
	out := ListReparseableOutput{ArtifactIDs: make([]string, 0, len(artifacts))}
	for _, art := range artifacts {
		out.ArtifactIDs = append(out.ArtifactIDs, art.ArtifactID)
	}
	return out, nil
}

// ReparseArtifactActivity runs the parse pipeline for one artifact. Parse
// failures are an outcome, not an activity error: the workflow reads the
// status instead of retrying a deterministic failure.
func (a *Activities) ReparseArtifactActivity(ctx context.Context, in ReparseArtifactInput) (ReparseArtifactOutput, error) {
	res, err := a.svc.Reparse(ctx, in.ArtifactID)
	if err != nil {
		if isParseFailure(err) {
			return ReparseArtifactOutput{
				ArtifactID: in.ArtifactID,
				Status:     res.Artifact.ParseStatus,
				FailReason: res.Artifact.FailReason,
			}, nil
		}
		return ReparseArtifactOutput{}, err
	}
	sections := 0
	if res.Parsed != nil {
		sections = len(res.Parsed.Sections)
	}
	return ReparseArtifactOutput{
		ArtifactID: in.ArtifactID,
		Status:     res.Artifact.ParseStatus,
		Sections:   sections,
	}, nil
}

func (a *Activities) LoadSectionsActivity(ctx context.Context, in LoadSectionsInput) (LoadSectionsOutput, error) {
	pc, err := a.svc.Parsed(ctx, in.ArtifactID)
	if err != nil {
		return LoadSectionsOutput{}, err
	}
	artifact, err := a.artifacts.GetArtifact(ctx, in.ArtifactID)
	if err != nil {
		return LoadSectionsOutput{}, err
	}
	title := artifact.Title
	if title == "" {
		title = artifact.Filename
	}
	return LoadSectionsOutput{Title: title, Sections: pc.Sections}, nil
}

func (a *Activities) GenerateQuizActivity(ctx context.Context, in GenerateQuizInput) (GenerateQuizOutput, error) {
	provider, _ := a.quiz.ByIndex(in.ProviderIndex)
	questions, info, err := provider.GenerateQuiz(ctx, quizgen.QuizRequest{
		SourceTitle:   in.Title,
		Sections:      in.Sections,
		QuestionCount: in.QuestionCount,
	})
	if err != nil {
		return GenerateQuizOutput{}, err
	}
	return GenerateQuizOutput{Questions: questions, ProviderName: info.Name, Model: info.Model}, nil
}

func (a *Activities) WriteQuizReportActivity(_ context.Context, in WriteQuizReportInput) (WriteQuizReportOutput, error) {
	dir := util.SafeJoin(a.cfg.DataOutRoot, in.ArtifactID)
	path := filepath.Join(dir, "quiz-"+in.RunID+".json")
	report := map[string]any{
		"artifact_id":  in.ArtifactID,
		"title":        in.Title,
		"provider":     in.Provider,
		"questions":    in.Questions,
		"generated_at": time.Now().UTC(),
	}
	if err := util.WriteJSONAtomic(path, report); err != nil {
		return WriteQuizReportOutput{}, err
	}
	rows := make([]any, 0, len(in.Questions))
	for _, q := range in.Questions {
		rows = append(rows, q)
	}
	if err := util.WriteJSONLinesAtomic(filepath.Join(dir, "quiz-"+in.RunID+".jsonl"), rows); err != nil {
		return WriteQuizReportOutput{}, err
	}
	return WriteQuizReportOutput{Path: path}, nil
}

func isParseFailure(err error) bool {
	return errors.Is(err, parser.ErrNoExtractableText) ||
		errors.Is(err, parser.ErrSchemaMismatch) ||
		errors.Is(err, parser.ErrExtractionTimeout)
}
