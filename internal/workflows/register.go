package workflows

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker) {
	w.RegisterWorkflow(ArtifactParseWorkflow)
	w.RegisterWorkflow(BatchReparseWorkflow)
	w.RegisterWorkflow(QuizBuildWorkflow)
}
