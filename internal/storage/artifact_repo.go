package storage

import (
	"context"
	"fmt"

	"quizsmith/internal/models"
)

type ArtifactRepo struct {
	db *DB
}

func NewArtifactRepo(db *DB) *ArtifactRepo {
	return &ArtifactRepo{db: db}
}

func (r *ArtifactRepo) CreateArtifact(ctx context.Context, a models.Artifact, content []byte) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO artifacts (artifact_id, filename, content_type, byte_size, content, title, description, parse_status, fail_reason, fingerprint)
VALUES ($1, $2, $3, $4, $5, NULLIF($6,''), NULLIF($7,''), $8, NULLIF($9,''), $10)`,
		a.ArtifactID, a.Filename, a.ContentType, a.ByteSize, content, a.Title, a.Description, a.ParseStatus, a.FailReason, a.Fingerprint,
	)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	return nil
}

func (r *ArtifactRepo) GetArtifact(ctx context.Context, artifactID string) (models.Artifact, error) {
	var a models.Artifact
	err := r.db.Pool.QueryRow(ctx, `
SELECT artifact_id, filename, content_type, byte_size, COALESCE(title,''), COALESCE(description,''),
       parse_status, COALESCE(fail_reason,''), fingerprint, uploaded_at, last_accessed, updated_at
FROM artifacts
WHERE artifact_id=$1`, artifactID).
		Scan(&a.ArtifactID, &a.Filename, &a.ContentType, &a.ByteSize, &a.Title, &a.Description,
			&a.ParseStatus, &a.FailReason, &a.Fingerprint, &a.UploadedAt, &a.LastAccessed, &a.UpdatedAt)
	if err != nil {
		return models.Artifact{}, fmt.Errorf("get artifact: %w", err)
	}
	return a, nil
}

func (r *ArtifactRepo) ListArtifacts(ctx context.Context) ([]models.Artifact, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT artifact_id, filename, content_type, byte_size, COALESCE(title,''), COALESCE(description,''),
       parse_status, COALESCE(fail_reason,''), fingerprint, uploaded_at, last_accessed, updated_at
FROM artifacts
ORDER BY uploaded_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	out := make([]models.Artifact, 0)
	for rows.Next() {
		var a models.Artifact
		if err := rows.Scan(&a.ArtifactID, &a.Filename, &a.ContentType, &a.ByteSize, &a.Title, &a.Description,
			&a.ParseStatus, &a.FailReason, &a.Fingerprint, &a.UploadedAt, &a.LastAccessed, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return out, nil
}

func (r *ArtifactRepo) ListArtifactsByStatus(ctx context.Context, statuses []string) ([]models.Artifact, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT artifact_id, filename, content_type, byte_size, COALESCE(title,''), COALESCE(description,''),
       parse_status, COALESCE(fail_reason,''), fingerprint, uploaded_at, last_accessed, updated_at
FROM artifacts
WHERE parse_status = ANY($1)
ORDER BY uploaded_at DESC`, statuses)
	if err != nil {
		return nil, fmt.Errorf("list artifacts by status: %w", err)
	}
	defer rows.Close()

	out := make([]models.Artifact, 0)
	for rows.Next() {
		var a models.Artifact
		if err := rows.Scan(&a.ArtifactID, &a.Filename, &a.ContentType, &a.ByteSize, &a.Title, &a.Description,
			&a.ParseStatus, &a.FailReason, &a.Fingerprint, &a.UploadedAt, &a.LastAccessed, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan artifact by status: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *ArtifactRepo) GetContent(ctx context.Context, artifactID string) ([]byte, error) {
	var content []byte
	err := r.db.Pool.QueryRow(ctx, `
SELECT content FROM artifacts WHERE artifact_id=$1`, artifactID).Scan(&content)
	if err != nil {
		return nil, fmt.Errorf("get artifact content: %w", err)
	}
	return content, nil
}

// TouchLastAccessed stamps last_accessed; only the download path calls this.
func (r *ArtifactRepo) TouchLastAccessed(ctx context.Context, artifactID string) error {
	if _, err := r.db.Pool.Exec(ctx, `
UPDATE artifacts SET last_accessed=NOW() WHERE artifact_id=$1`, artifactID); err != nil {
		return fmt.Errorf("touch last accessed: %w", err)
	}
	return nil
}

func (r *ArtifactRepo) UpdateParseStatus(ctx context.Context, artifactID, status, failReason string) error {
	_, err := r.db.Pool.Exec(ctx, `
UPDATE artifacts SET parse_status=$2, fail_reason=NULLIF($3,''), updated_at=NOW() WHERE artifact_id=$1`,
		artifactID, status, failReason)
	if err != nil {
		return fmt.Errorf("update parse status: %w", err)
	}
	return nil
}

// ReplaceContent swaps the raw bytes of an existing artifact for a re-upload.
// The derived parsed row is removed in the same transaction so a stale parse
// can never outlive the content it was derived from.
func (r *ArtifactRepo) ReplaceContent(ctx context.Context, artifactID, filename, contentType, fingerprint string, content []byte) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx replace content: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	tag, err := tx.Exec(ctx, `
UPDATE artifacts
SET filename=$2, content_type=$3, byte_size=$4, content=$5, fingerprint=$6,
    parse_status=$7, fail_reason=NULL, updated_at=NOW()
WHERE artifact_id=$1`,
		artifactID, filename, contentType, int64(len(content)), content, fingerprint, models.ParseStatusUnparsed)
	if err != nil {
		return fmt.Errorf("replace artifact content: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("replace artifact content: artifact %s not found", artifactID)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM parsed_contents WHERE artifact_id=$1`, artifactID); err != nil {
		return fmt.Errorf("drop stale parsed content: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace content: %w", err)
	}
	return nil
}

// DeleteArtifact removes the artifact and, via cascade, its parsed content.
// Returns the stored fingerprint so the caller can invalidate the cache.
func (r *ArtifactRepo) DeleteArtifact(ctx context.Context, artifactID string) (string, error) {
	var fingerprint string
	err := r.db.Pool.QueryRow(ctx, `
DELETE FROM artifacts WHERE artifact_id=$1 RETURNING fingerprint`, artifactID).Scan(&fingerprint)
	if err != nil {
		return "", fmt.Errorf("delete artifact: %w", err)
	}
	return fingerprint, nil
}
