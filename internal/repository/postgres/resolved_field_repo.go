package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"planproof/internal/domain"
	"planproof/internal/port"
)

type resolvedFieldRepo struct {
	db *sqlx.DB
}

// NewResolvedFieldRepo creates a new PostgreSQL-backed ResolvedFieldRepository.
func NewResolvedFieldRepo(db *sqlx.DB) port.ResolvedFieldRepository {
	return &resolvedFieldRepo{db: db}
}

// resolvedFieldRow is the table shape; evidence is stored as JSONB.
type resolvedFieldRow struct {
	ID            uuid.UUID             `db:"id"`
	DocumentID    uuid.UUID             `db:"document_id"`
	FieldName     string                `db:"field_name"`
	Value         string                `db:"value"`
	Confidence    float64               `db:"confidence"`
	Evidence      []byte                `db:"evidence"`
	ResolvedBy    domain.ResolvedBy     `db:"resolved_by"`
	Tier          domain.ExtractionTier `db:"tier"`
	LowConfidence bool                  `db:"low_confidence"`
	CreatedAt     time.Time             `db:"created_at"`
}

func (row *resolvedFieldRow) toDomain() (domain.ResolvedField, error) {
	f := domain.ResolvedField{
		ID:            row.ID,
		DocumentID:    row.DocumentID,
		FieldName:     row.FieldName,
		Value:         row.Value,
		Confidence:    row.Confidence,
		ResolvedBy:    row.ResolvedBy,
		Tier:          row.Tier,
		LowConfidence: row.LowConfidence,
		CreatedAt:     row.CreatedAt,
	}
	if len(row.Evidence) > 0 {
		if err := json.Unmarshal(row.Evidence, &f.Evidence); err != nil {
			return f, fmt.Errorf("unmarshaling evidence for %s: %w", row.FieldName, err)
		}
	}
	return f, nil
}

func (r *resolvedFieldRepo) Upsert(ctx context.Context, field *domain.ResolvedField) error {
	evidence, err := json.Marshal(field.Evidence)
	if err != nil {
		return fmt.Errorf("resolvedFieldRepo.Upsert marshal: %w", err)
	}
	if field.CreatedAt.IsZero() {
		field.CreatedAt = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO resolved_fields (
			id, document_id, field_name, value, confidence,
			evidence, resolved_by, tier, low_confidence, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (document_id, field_name) DO UPDATE SET
			value = EXCLUDED.value,
			confidence = EXCLUDED.confidence,
			evidence = EXCLUDED.evidence,
			resolved_by = EXCLUDED.resolved_by,
			tier = EXCLUDED.tier,
			low_confidence = EXCLUDED.low_confidence`,
		field.ID, field.DocumentID, field.FieldName, field.Value, field.Confidence,
		evidence, field.ResolvedBy, field.Tier, field.LowConfidence, field.CreatedAt)
	if err != nil {
		return fmt.Errorf("resolvedFieldRepo.Upsert: %w", err)
	}
	return nil
}

func (r *resolvedFieldRepo) ListByDocument(ctx context.Context, docID uuid.UUID) ([]domain.ResolvedField, error) {
	var rows []resolvedFieldRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT * FROM resolved_fields WHERE document_id = $1 ORDER BY field_name ASC", docID)
	if err != nil {
		return nil, fmt.Errorf("resolvedFieldRepo.ListByDocument: %w", err)
	}
	return rowsToFields(rows)
}

func (r *resolvedFieldRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.ResolvedField, error) {
	var rows []resolvedFieldRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT rf.* FROM resolved_fields rf
		 JOIN documents d ON d.id = rf.document_id
		 WHERE d.run_id = $1
		 ORDER BY d.created_at ASC, rf.field_name ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("resolvedFieldRepo.ListByRun: %w", err)
	}
	return rowsToFields(rows)
}

func (r *resolvedFieldRepo) DeleteByDocument(ctx context.Context, docID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM resolved_fields WHERE document_id = $1", docID)
	if err != nil {
		return fmt.Errorf("resolvedFieldRepo.DeleteByDocument: %w", err)
	}
	return nil
}

func rowsToFields(rows []resolvedFieldRow) ([]domain.ResolvedField, error) {
	out := make([]domain.ResolvedField, 0, len(rows))
	for i := range rows {
		f, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
