package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"planproof/internal/domain"
	"planproof/internal/port"
)

type documentRepo struct {
	db *sqlx.DB
}

// NewDocumentRepo creates a new PostgreSQL-backed DocumentRepository.
func NewDocumentRepo(db *sqlx.DB) port.DocumentRepository {
	return &documentRepo{db: db}
}

func (r *documentRepo) Create(ctx context.Context, doc *domain.Document) error {
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO documents (
			id, run_id, file_name, content_type, file_size,
			s3_bucket, s3_key, document_type, matched_pattern, page_count,
			status, processing_error, attempts, processed_at,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14,
			$15, $16
		)`,
		doc.ID, doc.RunID, doc.FileName, doc.ContentType, doc.FileSize,
		doc.S3Bucket, doc.S3Key, doc.DocumentType, doc.MatchedPattern, doc.PageCount,
		doc.Status, doc.ProcessingError, doc.Attempts, doc.ProcessedAt,
		doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("documentRepo.Create: %w", err)
	}
	return nil
}

func (r *documentRepo) GetByID(ctx context.Context, docID uuid.UUID) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.GetContext(ctx, &doc, "SELECT * FROM documents WHERE id = $1", docID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("documentRepo.GetByID: %w", err)
	}
	return &doc, nil
}

func (r *documentRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.Document, error) {
	var docs []domain.Document
	err := r.db.SelectContext(ctx, &docs,
		"SELECT * FROM documents WHERE run_id = $1 ORDER BY created_at ASC", runID)
	if err != nil {
		return nil, fmt.Errorf("documentRepo.ListByRun: %w", err)
	}
	return docs, nil
}

// ClaimQueued atomically moves up to limit queued documents to processing and
// returns them. SKIP LOCKED keeps concurrent workers from claiming the same
// document twice.
func (r *documentRepo) ClaimQueued(ctx context.Context, limit int) ([]domain.Document, error) {
	var docs []domain.Document
	err := r.db.SelectContext(ctx, &docs,
		`UPDATE documents SET status = 'processing', updated_at = $1
		 WHERE id IN (
			SELECT id FROM documents WHERE status = 'queued'
			ORDER BY created_at ASC LIMIT $2
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING *`,
		time.Now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("documentRepo.ClaimQueued: %w", err)
	}
	return docs, nil
}

func (r *documentRepo) UpdateStatus(ctx context.Context, doc *domain.Document) error {
	doc.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE documents SET
			status = $1, processing_error = $2, attempts = $3,
			processed_at = $4, updated_at = $5
		 WHERE id = $6`,
		doc.Status, doc.ProcessingError, doc.Attempts,
		doc.ProcessedAt, doc.UpdatedAt, doc.ID)
	if err != nil {
		return fmt.Errorf("documentRepo.UpdateStatus: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *documentRepo) UpdateClassification(ctx context.Context, doc *domain.Document) error {
	doc.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE documents SET
			document_type = $1, matched_pattern = $2, page_count = $3, updated_at = $4
		 WHERE id = $5`,
		doc.DocumentType, doc.MatchedPattern, doc.PageCount, doc.UpdatedAt, doc.ID)
	if err != nil {
		return fmt.Errorf("documentRepo.UpdateClassification: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *documentRepo) Delete(ctx context.Context, docID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id = $1", docID)
	if err != nil {
		return fmt.Errorf("documentRepo.Delete: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}
