package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"planproof/internal/domain"
	"planproof/internal/port"
)

type resolutionCacheRepo struct {
	db *sqlx.DB
}

// NewResolutionCacheRepo creates a new PostgreSQL-backed ResolutionCacheRepository.
func NewResolutionCacheRepo(db *sqlx.DB) port.ResolutionCacheRepository {
	return &resolutionCacheRepo{db: db}
}

func (r *resolutionCacheRepo) Get(ctx context.Context, scopeKind domain.ScopeKind, scopeID uuid.UUID, fieldName string) (*domain.ResolutionCacheEntry, error) {
	var entry domain.ResolutionCacheEntry
	err := r.db.GetContext(ctx, &entry,
		`SELECT * FROM resolution_cache
		 WHERE scope_kind = $1 AND scope_id = $2 AND field_name = $3`,
		scopeKind, scopeID, fieldName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("resolutionCacheRepo.Get: %w", err)
	}
	return &entry, nil
}

func (r *resolutionCacheRepo) Put(ctx context.Context, entry *domain.ResolutionCacheEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO resolution_cache (
			scope_kind, scope_id, field_name, value, confidence,
			resolved_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (scope_kind, scope_id, field_name) DO UPDATE SET
			value = EXCLUDED.value,
			confidence = EXCLUDED.confidence,
			resolved_by = EXCLUDED.resolved_by,
			updated_at = EXCLUDED.updated_at`,
		entry.ScopeKind, entry.ScopeID, entry.FieldName, entry.Value, entry.Confidence,
		entry.ResolvedBy, entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("resolutionCacheRepo.Put: %w", err)
	}
	return nil
}

func (r *resolutionCacheRepo) DeleteByScope(ctx context.Context, scopeKind domain.ScopeKind, scopeID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM resolution_cache WHERE scope_kind = $1 AND scope_id = $2",
		scopeKind, scopeID)
	if err != nil {
		return fmt.Errorf("resolutionCacheRepo.DeleteByScope: %w", err)
	}
	return nil
}
