package workflows

type ParseArtifactInput struct {
	ArtifactID string `json:"artifact_id"`
}

type BatchReparseInput struct {
	MaxConcurrentChildren int `json:"max_concurrent_children"`
}

type BatchReparseProgress struct {
	Total       int               `json:"total"`
	Done        int               `json:"done"`
	Failed      int               `json:"failed"`
	PerArtifact map[string]string `json:"per_artifact_status"`
}

type QuizBuildInput struct {
	ArtifactID    string `json:"artifact_id"`
	RunID         string `json:"run_id"`
	QuestionCount int    `json:"question_count"`
	ProviderIndex int    `json:"provider_index"`
}

type QuizBuildOutput struct {
	ArtifactID string `json:"artifact_id"`
	ReportPath string `json:"report_path"`
	Questions  int    `json:"questions"`
	Provider   string `json:"provider"`
}
