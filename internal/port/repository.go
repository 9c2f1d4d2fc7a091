package port

import (
	"context"

	"github.com/google/uuid"

	"planproof/internal/domain"
)

// RunRepository defines the contract for run persistence.
type RunRepository interface {
	Create(ctx context.Context, run *domain.Run) error
	GetByID(ctx context.Context, runID uuid.UUID) (*domain.Run, error)
	List(ctx context.Context, offset, limit int) ([]domain.Run, int, error)
	UpdateProgress(ctx context.Context, run *domain.Run) error
	IncrementLLMCalls(ctx context.Context, runID uuid.UUID) error
}

// DocumentRepository defines the contract for document persistence.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, docID uuid.UUID) (*domain.Document, error)
	ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.Document, error)
	ClaimQueued(ctx context.Context, limit int) ([]domain.Document, error)
	UpdateStatus(ctx context.Context, doc *domain.Document) error
	UpdateClassification(ctx context.Context, doc *domain.Document) error
	Delete(ctx context.Context, docID uuid.UUID) error
}

// ResolvedFieldRepository defines the contract for resolved field persistence.
type ResolvedFieldRepository interface {
	Upsert(ctx context.Context, field *domain.ResolvedField) error
	ListByDocument(ctx context.Context, docID uuid.UUID) ([]domain.ResolvedField, error)
	ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.ResolvedField, error)
	DeleteByDocument(ctx context.Context, docID uuid.UUID) error
}

// FindingRepository defines the contract for finding persistence.
type FindingRepository interface {
	CreateBatch(ctx context.Context, findings []domain.Finding) error
	ListByDocument(ctx context.Context, docID uuid.UUID) ([]domain.Finding, error)
	ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.Finding, error)
	DeleteByDocument(ctx context.Context, docID uuid.UUID) error
}

// ResolutionCacheRepository defines the contract for the field resolution cache.
type ResolutionCacheRepository interface {
	Get(ctx context.Context, scopeKind domain.ScopeKind, scopeID uuid.UUID, fieldName string) (*domain.ResolutionCacheEntry, error)
	Put(ctx context.Context, entry *domain.ResolutionCacheEntry) error
	DeleteByScope(ctx context.Context, scopeKind domain.ScopeKind, scopeID uuid.UUID) error
}

// ArtifactRepository defines the contract for pipeline artifact persistence.
type ArtifactRepository interface {
	Create(ctx context.Context, artifact *domain.Artifact) error
	ListByDocument(ctx context.Context, docID uuid.UUID) ([]domain.Artifact, error)
}

// RuleRepository defines the contract for validation rule persistence.
type RuleRepository interface {
	UpsertBatch(ctx context.Context, rules []domain.Rule) error
	ListAll(ctx context.Context) ([]domain.Rule, error)
	ListByDocumentType(ctx context.Context, docType domain.DocumentType) ([]domain.Rule, error)
}
