package models

import "time"

// Parse status lifecycle for an artifact's derived content. Reparse is only
// legal from unparsed or failed.
const (
	ParseStatusUnparsed = "unparsed"
	ParseStatusParsing  = "parsing"
	ParseStatusParsed   = "parsed"
	ParseStatusFailed   = "failed"
)

type Artifact struct {
	ArtifactID   string     `json:"artifact_id"`
	Filename     string     `json:"filename"`
	ContentType  string     `json:"content_type"`
	ByteSize     int64      `json:"byte_size"`
	Title        string     `json:"title,omitempty"`
	Description  string     `json:"description,omitempty"`
	ParseStatus  string     `json:"parse_status"`
	FailReason   string     `json:"fail_reason,omitempty"`
	Fingerprint  string     `json:"fingerprint"`
	UploadedAt   time.Time  `json:"uploaded_at"`
	LastAccessed *time.Time `json:"last_accessed,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type Section struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	Level   int    `json:"level"`
	Ordinal int    `json:"ordinal"`
}

type ParsedContent struct {
	ContentID   string    `json:"content_id"`
	ArtifactID  string    `json:"artifact_id"`
	ContentType string    `json:"content_type"`
	Text        string    `json:"text"`
	Sections    []Section `json:"sections"`
	Encoding    string    `json:"encoding,omitempty"`
	ByteSize    int64     `json:"byte_size"`
	Fingerprint string    `json:"fingerprint"`
	ParsedAt    time.Time `json:"parsed_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type QuizQuestion struct {
	Question       string   `json:"question"`
	Choices        []string `json:"choices"`
	Answer         int      `json:"answer"`
	SectionOrdinal int      `json:"section_ordinal"`
}
