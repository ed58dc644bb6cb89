package parser

import "errors"

// Validation failures. These abort an upload before anything is persisted.
var (
	ErrUnsupportedType = errors.New("unsupported content type")
	ErrTypeMismatch    = errors.New("declared content type does not match file content")
	ErrTooLarge        = errors.New("file exceeds maximum upload size")
	ErrEmpty           = errors.New("file is empty")
)

// Extraction failures. The uploaded artifact is kept and marked failed so the
// caller can retry.
var (
	ErrNoExtractableText = errors.New("no extractable text found in document")
	ErrSchemaMismatch    = errors.New("json payload has no recognizable text field")
	ErrExtractionTimeout = errors.New("text extraction timed out")
)

// Retryable reports whether a failed parse is worth retrying with the same
// input. A schema mismatch never fixes itself; a timeout might.
func Retryable(err error) bool {
	return errors.Is(err, ErrExtractionTimeout)
}
