package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.ListReparseableActivity)
	w.RegisterActivity(a.ReparseArtifactActivity)
	w.RegisterActivity(a.LoadSectionsActivity)
	w.RegisterActivity(a.GenerateQuizActivity)
	w.RegisterActivity(a.WriteQuizReportActivity)
}
