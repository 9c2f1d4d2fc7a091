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

type findingRepo struct {
	db *sqlx.DB
}

// NewFindingRepo creates a new PostgreSQL-backed FindingRepository.
func NewFindingRepo(db *sqlx.DB) port.FindingRepository {
	return &findingRepo{db: db}
}

// findingRow is the table shape; missing_fields and evidence are JSONB.
type findingRow struct {
	ID            uuid.UUID           `db:"id"`
	DocumentID    uuid.UUID           `db:"document_id"`
	RuleID        string              `db:"rule_id"`
	Status        domain.FindingStatus `db:"status"`
	Severity      domain.RuleSeverity `db:"severity"`
	Message       string              `db:"message"`
	MissingFields []byte              `db:"missing_fields"`
	Evidence      []byte              `db:"evidence"`
	CreatedAt     time.Time           `db:"created_at"`
}

func (row *findingRow) toDomain() (domain.Finding, error) {
	f := domain.Finding{
		ID:         row.ID,
		DocumentID: row.DocumentID,
		RuleID:     row.RuleID,
		Status:     row.Status,
		Severity:   row.Severity,
		Message:    row.Message,
		CreatedAt:  row.CreatedAt,
	}
	if len(row.MissingFields) > 0 {
		if err := json.Unmarshal(row.MissingFields, &f.MissingFields); err != nil {
			return f, fmt.Errorf("unmarshaling missing_fields for %s: %w", row.RuleID, err)
		}
	}
	if len(row.Evidence) > 0 {
		if err := json.Unmarshal(row.Evidence, &f.Evidence); err != nil {
			return f, fmt.Errorf("unmarshaling evidence for %s: %w", row.RuleID, err)
		}
	}
	return f, nil
}

func (r *findingRepo) CreateBatch(ctx context.Context, findings []domain.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("findingRepo.CreateBatch begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range findings {
		f := &findings[i]
		missing, err := json.Marshal(f.MissingFields)
		if err != nil {
			return fmt.Errorf("findingRepo.CreateBatch marshal missing_fields: %w", err)
		}
		evidence, err := json.Marshal(f.Evidence)
		if err != nil {
			return fmt.Errorf("findingRepo.CreateBatch marshal evidence: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO findings (
				id, document_id, rule_id, status, severity,
				message, missing_fields, evidence, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			f.ID, f.DocumentID, f.RuleID, f.Status, f.Severity,
			f.Message, missing, evidence, f.CreatedAt)
		if err != nil {
			return fmt.Errorf("findingRepo.CreateBatch insert %s: %w", f.RuleID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("findingRepo.CreateBatch commit: %w", err)
	}
	return nil
}

func (r *findingRepo) ListByDocument(ctx context.Context, docID uuid.UUID) ([]domain.Finding, error) {
	var rows []findingRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT * FROM findings WHERE document_id = $1 ORDER BY rule_id ASC", docID)
	if err != nil {
		return nil, fmt.Errorf("findingRepo.ListByDocument: %w", err)
	}
	return rowsToFindings(rows)
}

func (r *findingRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.Finding, error) {
	var rows []findingRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT f.* FROM findings f
		 JOIN documents d ON d.id = f.document_id
		 WHERE d.run_id = $1
		 ORDER BY d.created_at ASC, f.rule_id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("findingRepo.ListByRun: %w", err)
	}
	return rowsToFindings(rows)
}

func (r *findingRepo) DeleteByDocument(ctx context.Context, docID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM findings WHERE document_id = $1", docID)
	if err != nil {
		return fmt.Errorf("findingRepo.DeleteByDocument: %w", err)
	}
	return nil
}

func rowsToFindings(rows []findingRow) ([]domain.Finding, error) {
	out := make([]domain.Finding, 0, len(rows))
	for i := range rows {
		f, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
