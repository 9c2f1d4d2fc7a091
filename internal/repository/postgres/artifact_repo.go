package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"planproof/internal/domain"
	"planproof/internal/port"
)

type artifactRepo struct {
	db *sqlx.DB
}

// NewArtifactRepo creates a new PostgreSQL-backed ArtifactRepository.
func NewArtifactRepo(db *sqlx.DB) port.ArtifactRepository {
	return &artifactRepo{db: db}
}

func (r *artifactRepo) Create(ctx context.Context, artifact *domain.Artifact) error {
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO artifacts (id, document_id, artifact_type, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		artifact.ID, artifact.DocumentID, artifact.Type, artifact.Payload, artifact.CreatedAt)
	if err != nil {
		return fmt.Errorf("artifactRepo.Create: %w", err)
	}
	return nil
}

func (r *artifactRepo) ListByDocument(ctx context.Context, docID uuid.UUID) ([]domain.Artifact, error) {
	var artifacts []domain.Artifact
	err := r.db.SelectContext(ctx, &artifacts,
		"SELECT * FROM artifacts WHERE document_id = $1 ORDER BY created_at ASC", docID)
	if err != nil {
		return nil, fmt.Errorf("artifactRepo.ListByDocument: %w", err)
	}
	return artifacts, nil
}
