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

type runRepo struct {
	db *sqlx.DB
}

// NewRunRepo creates a new PostgreSQL-backed RunRepository.
func NewRunRepo(db *sqlx.DB) port.RunRepository {
	return &runRepo{db: db}
}

func (r *runRepo) Create(ctx context.Context, run *domain.Run) error {
	now := time.Now().UTC()
	run.CreatedAt = now
	run.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (
			id, application_ref, state, total_documents, processed, errors,
			llm_calls, created_at, updated_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.ID, run.ApplicationRef, run.State, run.TotalDocuments, run.Processed,
		run.Errors, run.LLMCalls, run.CreatedAt, run.UpdatedAt, run.CompletedAt)
	if err != nil {
		return fmt.Errorf("runRepo.Create: %w", err)
	}
	return nil
}

func (r *runRepo) GetByID(ctx context.Context, runID uuid.UUID) (*domain.Run, error) {
	var run domain.Run
	err := r.db.GetContext(ctx, &run, "SELECT * FROM runs WHERE id = $1", runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("runRepo.GetByID: %w", err)
	}
	return &run, nil
}

func (r *runRepo) List(ctx context.Context, offset, limit int) ([]domain.Run, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM runs")
	if err != nil {
		return nil, 0, fmt.Errorf("runRepo.List count: %w", err)
	}

	var runs []domain.Run
	err = r.db.SelectContext(ctx, &runs,
		"SELECT * FROM runs ORDER BY created_at DESC LIMIT $1 OFFSET $2",
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("runRepo.List: %w", err)
	}
	return runs, total, nil
}

func (r *runRepo) UpdateProgress(ctx context.Context, run *domain.Run) error {
	run.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE runs SET
			state = $1, processed = $2, errors = $3,
			updated_at = $4, completed_at = $5
		 WHERE id = $6`,
		run.State, run.Processed, run.Errors,
		run.UpdatedAt, run.CompletedAt, run.ID)
	if err != nil {
		return fmt.Errorf("runRepo.UpdateProgress: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}

func (r *runRepo) IncrementLLMCalls(ctx context.Context, runID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE runs SET llm_calls = llm_calls + 1, updated_at = $1 WHERE id = $2",
		time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("runRepo.IncrementLLMCalls: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}
