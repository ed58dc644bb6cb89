// Package ingest orchestrates the upload pipeline: validate, extract,
// segment, cache, persist.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"quizsmith/internal/cache"
	"quizsmith/internal/models"
	"quizsmith/internal/parser"
	"quizsmith/internal/util"
)

// ErrNotReparseable rejects a reparse of an artifact that is currently
// parsing or already parsed.
var ErrNotReparseable = errors.New("artifact is not in a reparseable state")

// ArtifactStore is the slice of artifact persistence the service needs.
// Implemented by storage.ArtifactRepo and by in-memory fakes in tests.
type ArtifactStore interface {
	CreateArtifact(ctx context.Context, a models.Artifact, content []byte) error
	GetArtifact(ctx context.Context, artifactID string) (models.Artifact, error)
	GetContent(ctx context.Context, artifactID string) ([]byte, error)
	TouchLastAccessed(ctx context.Context, artifactID string) error
	UpdateParseStatus(ctx context.Context, artifactID, status, failReason string) error
	ReplaceContent(ctx context.Context, artifactID, filename, contentType, fingerprint string, content []byte) error
	DeleteArtifact(ctx context.Context, artifactID string) (string, error)
}

// ParsedStore persists derived parses. Implemented by storage.ParsedRepo.
type ParsedStore interface {
	Replace(ctx context.Context, pc models.ParsedContent) error
	GetByArtifact(ctx context.Context, artifactID string) (models.ParsedContent, error)
	GetByFingerprint(ctx context.Context, fingerprint string) (models.ParsedContent, error)
}

type Options struct {
	MaxUploadBytes  int64
	ExtractTimeout  time.Duration
	StrictTypeCheck bool
	Segment         parser.SegmentConfig
}

func (o Options) withDefaults() Options {
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = 10 << 20
	}
	if o.ExtractTimeout <= 0 {
		o.ExtractTimeout = time.Minute
	}
	return o
}

type Service struct {
	opts      Options
	cache     *cache.ParseCache
	artifacts ArtifactStore
	parsed    ParsedStore
}

// NewService wires the pipeline. The cache is injected so tests can supply a
// fresh one and so its lifecycle is owned by the process, not this package.
func NewService(opts Options, c *cache.ParseCache, artifacts ArtifactStore, parsed ParsedStore) *Service {
	return &Service{opts: opts.withDefaults(), cache: c, artifacts: artifacts, parsed: parsed}
}

// UploadOptions carries optional user-supplied artifact metadata.
type UploadOptions struct {
	Title       string
	Description string
}

// Result is what one ingest or reparse produced. Parsed is nil when
// extraction failed; the artifact is still persisted in that case.
type Result struct {
	Artifact     models.Artifact
	Parsed       *models.ParsedContent
	TypeMismatch bool
	CacheHit     bool
}

// Ingest validates and stores one upload, then derives its parsed content.
// Validation failures return before anything is persisted. Extraction
// failures keep the artifact, marked failed, and surface the typed error so
// the caller can offer a retry.
func (s *Service) Ingest(ctx context.Context, filename, declaredType string, raw []byte, opts UploadOptions) (Result, error) {
	det, err := parser.Validate(filename, declaredType, int64(len(raw)), peek(raw), s.opts.MaxUploadBytes)
	if err != nil {
		return Result{}, err
	}
	if det.Mismatch && s.opts.StrictTypeCheck {
		return Result{}, fmt.Errorf("%w: declared %q, detected %q", parser.ErrTypeMismatch, det.Type, det.Sniffed)
	}

	now := time.Now().UTC()
	artifact := models.Artifact{
		ArtifactID:  uuid.NewString(),
		Filename:    filename,
		ContentType: string(det.Type),
		ByteSize:    int64(len(raw)),
		Title:       opts.Title,
		Description: opts.Description,
		ParseStatus: models.ParseStatusParsing,
		Fingerprint: util.Fingerprint(raw, string(det.Type)),
		UploadedAt:  now,
		UpdatedAt:   now,
	}
	if err := s.artifacts.CreateArtifact(ctx, artifact, raw); err != nil {
		return Result{}, err
	}

	res, err := s.parsePipeline(ctx, artifact, det.Type, raw)
	res.TypeMismatch = det.Mismatch
	return res, err
}

// Reparse re-runs extraction and segmentation for an artifact left unparsed
// or failed by an earlier attempt.
func (s *Service) Reparse(ctx context.Context, artifactID string) (Result, error) {
	artifact, err := s.artifacts.GetArtifact(ctx, artifactID)
	if err != nil {
		return Result{}, err
	}
	switch artifact.ParseStatus {
	case models.ParseStatusUnparsed, models.ParseStatusFailed:
	default:
		return Result{}, fmt.Errorf("%w: status %q", ErrNotReparseable, artifact.ParseStatus)
	}

	raw, err := s.artifacts.GetContent(ctx, artifactID)
	if err != nil {
		return Result{}, err
	}
	if err := s.artifacts.UpdateParseStatus(ctx, artifactID, models.ParseStatusParsing, ""); err != nil {
		return Result{}, err
	}
	artifact.ParseStatus = models.ParseStatusParsing
	return s.parsePipeline(ctx, artifact, parser.ContentType(artifact.ContentType), raw)
}

// Reupload replaces an artifact's raw content in place. The old cache entry
// is invalidated when the fingerprint changed, and a fresh parse is derived
// from the new bytes only.
func (s *Service) Reupload(ctx context.Context, artifactID, filename, declaredType string, raw []byte) (Result, error) {
	det, err := parser.Validate(filename, declaredType, int64(len(raw)), peek(raw), s.opts.MaxUploadBytes)
	if err != nil {
		return Result{}, err
	}
	if det.Mismatch && s.opts.StrictTypeCheck {
		return Result{}, fmt.Errorf("%w: declared %q, detected %q", parser.ErrTypeMismatch, det.Type, det.Sniffed)
	}

	old, err := s.artifacts.GetArtifact(ctx, artifactID)
	if err != nil {
		return Result{}, err
	}
	fingerprint := util.Fingerprint(raw, string(det.Type))
	if err := s.artifacts.ReplaceContent(ctx, artifactID, filename, string(det.Type), fingerprint, raw); err != nil {
		return Result{}, err
	}
	if old.Fingerprint != fingerprint {
		s.cache.Invalidate(old.Fingerprint)
	}

	artifact, err := s.artifacts.GetArtifact(ctx, artifactID)
	if err != nil {
		return Result{}, err
	}
	if err := s.artifacts.UpdateParseStatus(ctx, artifactID, models.ParseStatusParsing, ""); err != nil {
		return Result{}, err
	}
	artifact.ParseStatus = models.ParseStatusParsing
	res, err := s.parsePipeline(ctx, artifact, det.Type, raw)
	res.TypeMismatch = det.Mismatch
	return res, err
}

// Delete removes the artifact, its parsed content, and its cache entry.
// This is the only path that destroys raw content.
func (s *Service) Delete(ctx context.Context, artifactID string) error {
	fingerprint, err := s.artifacts.DeleteArtifact(ctx, artifactID)
	if err != nil {
		return err
	}
	s.cache.Invalidate(fingerprint)
	return nil
}

// Download returns the original bytes and stamps last_accessed.
func (s *Service) Download(ctx context.Context, artifactID string) (models.Artifact, []byte, error) {
	artifact, err := s.artifacts.GetArtifact(ctx, artifactID)
	if err != nil {
		return models.Artifact{}, nil, err
	}
	raw, err := s.artifacts.GetContent(ctx, artifactID)
	if err != nil {
		return models.Artifact{}, nil, err
	}
	if err := s.artifacts.TouchLastAccessed(ctx, artifactID); err != nil {
		return models.Artifact{}, nil, err
	}
	return artifact, raw, nil
}

// Parsed returns the current parsed content for an artifact.
func (s *Service) Parsed(ctx context.Context, artifactID string) (models.ParsedContent, error) {
	return s.parsed.GetByArtifact(ctx, artifactID)
}

// parsePipeline runs extract+segment through the cache and persists the
// outcome for the given artifact. The cached value is rebound to each
// artifact: the computation happens once per fingerprint, the per-artifact
// parsed row is always written.
func (s *Service) parsePipeline(ctx context.Context, artifact models.Artifact, ct parser.ContentType, raw []byte) (Result, error) {
	computed, hit, err := s.cache.GetOrCompute(ctx, artifact.Fingerprint, func(ctx context.Context) (*models.ParsedContent, error) {
		return s.compute(ctx, ct, artifact.Fingerprint, raw)
	})
	if err != nil {
		reason := err.Error()
		if statusErr := s.artifacts.UpdateParseStatus(ctx, artifact.ArtifactID, models.ParseStatusFailed, reason); statusErr != nil {
			return Result{Artifact: artifact}, statusErr
		}
		artifact.ParseStatus = models.ParseStatusFailed
		artifact.FailReason = reason
		return Result{Artifact: artifact}, err
	}

	now := time.Now().UTC()
	derived := *computed
	derived.ContentID = uuid.NewString()
	derived.ArtifactID = artifact.ArtifactID
	derived.ParsedAt = now
	derived.UpdatedAt = now

	if err := s.parsed.Replace(ctx, derived); err != nil {
		return Result{Artifact: artifact}, err
	}
	if err := s.artifacts.UpdateParseStatus(ctx, artifact.ArtifactID, models.ParseStatusParsed, ""); err != nil {
		return Result{Artifact: artifact}, err
	}
	artifact.ParseStatus = models.ParseStatusParsed
	artifact.FailReason = ""
	return Result{Artifact: artifact, Parsed: &derived, CacheHit: hit}, nil
}

// compute is the uncached adapter→segmenter path. Pure over its inputs; the
// returned content carries no artifact binding yet.
func (s *Service) compute(ctx context.Context, ct parser.ContentType, fingerprint string, raw []byte) (*models.ParsedContent, error) {
	// A prior parse of identical bytes under the same declared type is
	// reusable as-is; the repository backs the cache across restarts.
	if prior, err := s.parsed.GetByFingerprint(ctx, fingerprint); err == nil {
		return &prior, nil
	}

	adapter, err := parser.AdapterFor(ct)
	if err != nil {
		return nil, err
	}
	ext, err := s.extractWithTimeout(ctx, adapter, raw)
	if err != nil {
		return nil, err
	}
	sections := parser.Segment(ext.Text, s.opts.Segment)
	return &models.ParsedContent{
		ContentType: string(ct),
		Text:        ext.Text,
		Sections:    sections,
		Encoding:    ext.Encoding,
		ByteSize:    int64(len(raw)),
		Fingerprint: fingerprint,
	}, nil
}

// extractWithTimeout bounds adapter work: malformed PDFs can spin in the
// underlying library. The worker goroutine runs to completion either way;
// on timeout its result is discarded.
func (s *Service) extractWithTimeout(ctx context.Context, adapter parser.Adapter, raw []byte) (parser.Extraction, error) {
	type outcome struct {
		ext parser.Extraction
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		ext, err := adapter.Extract(raw)
		done <- outcome{ext: ext, err: err}
	}()

	timer := time.NewTimer(s.opts.ExtractTimeout)
	defer timer.Stop()
	select {
	case out := <-done:
		return out.ext, out.err
	case <-ctx.Done():
		return parser.Extraction{}, fmt.Errorf("%w: %v", parser.ErrExtractionTimeout, ctx.Err())
	case <-timer.C:
		return parser.Extraction{}, fmt.Errorf("%w: exceeded %s", parser.ErrExtractionTimeout, s.opts.ExtractTimeout)
	}
}

func peek(raw []byte) []byte {
	if len(raw) > 512 {
		return raw[:512]
	}
	return raw
}
