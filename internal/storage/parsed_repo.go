package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"quizsmith/internal/models"
)

type ParsedRepo struct {
	db *DB
}

func NewParsedRepo(db *DB) *ParsedRepo {
	return &ParsedRepo{db: db}
}

// Replace installs pc as the single current parsed content for its artifact.
// Old rows are removed in the same transaction; parsed content is regenerated,
// never mutated in place.
func (r *ParsedRepo) Replace(ctx context.Context, pc models.ParsedContent) error {
	sections, err := json.Marshal(pc.Sections)
	if err != nil {
		return fmt.Errorf("marshal sections: %w", err)
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx replace parsed: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM parsed_contents WHERE artifact_id=$1`, pc.ArtifactID); err != nil {
		return fmt.Errorf("delete previous parsed content: %w", err)
	}
	_, err = tx.Exec(ctx, `
INSERT INTO parsed_contents (content_id, artifact_id, content_type, text, sections, encoding, byte_size, fingerprint)
VALUES ($1, $2, $3, $4, $5, NULLIF($6,''), $7, $8)`,
		pc.ContentID, pc.ArtifactID, pc.ContentType, pc.Text, sections, pc.Encoding, pc.ByteSize, pc.Fingerprint,
	)
	if err != nil {
		return fmt.Errorf("insert parsed content: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit parsed content: %w", err)
	}
	return nil
}

func (r *ParsedRepo) GetByArtifact(ctx context.Context, artifactID string) (models.ParsedContent, error) {
	return r.getOne(ctx, `
SELECT content_id, artifact_id, content_type, text, sections, COALESCE(encoding,''), byte_size, fingerprint, parsed_at, updated_at
FROM parsed_contents
WHERE artifact_id=$1`, artifactID)
}

// GetByFingerprint backs the parse cache: any prior parse of identical bytes
// under the same declared type is reusable as-is.
func (r *ParsedRepo) GetByFingerprint(ctx context.Context, fingerprint string) (models.ParsedContent, error) {
	return r.getOne(ctx, `
SELECT content_id, artifact_id, content_type, text, sections, COALESCE(encoding,''), byte_size, fingerprint, parsed_at, updated_at
FROM parsed_contents
WHERE fingerprint=$1
ORDER BY parsed_at DESC
LIMIT 1`, fingerprint)
}

func (r *ParsedRepo) getOne(ctx context.Context, query string, arg any) (models.ParsedContent, error) {
	var pc models.ParsedContent
	var sections []byte
	err := r.db.Pool.QueryRow(ctx, query, arg).
		Scan(&pc.ContentID, &pc.ArtifactID, &pc.ContentType, &pc.Text, &sections, &pc.Encoding,
			&pc.ByteSize, &pc.Fingerprint, &pc.ParsedAt, &pc.UpdatedAt)
	if err != nil {
		return models.ParsedContent{}, fmt.Errorf("get parsed content: %w", err)
	}
	if err := json.Unmarshal(sections, &pc.Sections); err != nil {
		return models.ParsedContent{}, fmt.Errorf("unmarshal sections: %w", err)
	}
	return pc, nil
}
