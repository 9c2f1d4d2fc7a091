package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"planproof/internal/domain"
)

// MockRunRepo is a mock implementation of port.RunRepository.
type MockRunRepo struct {
	mock.Mock
}

func (m *MockRunRepo) Create(ctx context.Context, run *domain.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRunRepo) GetByID(ctx context.Context, runID uuid.UUID) (*domain.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Run), args.Error(1)
}

func (m *MockRunRepo) List(ctx context.Context, offset, limit int) ([]domain.Run, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Run), args.Int(1), args.Error(2)
}

func (m *MockRunRepo) UpdateProgress(ctx context.Context, run *domain.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRunRepo) IncrementLLMCalls(ctx context.Context, runID uuid.UUID) error {
	args := m.Called(ctx, runID)
	return args.Error(0)
}

// MockDocumentRepo is a mock implementation of port.DocumentRepository.
type MockDocumentRepo struct {
	mock.Mock
}

func (m *MockDocumentRepo) Create(ctx context.Context, doc *domain.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepo) GetByID(ctx context.Context, docID uuid.UUID) (*domain.Document, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.Document, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Document), args.Error(1)
}

func (m *MockDocumentRepo) ClaimQueued(ctx context.Context, limit int) ([]domain.Document, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Document), args.Error(1)
}

func (m *MockDocumentRepo) UpdateStatus(ctx context.Context, doc *domain.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepo) UpdateClassification(ctx context.Context, doc *domain.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepo) Delete(ctx context.Context, docID uuid.UUID) error {
	args := m.Called(ctx, docID)
	return args.Error(0)
}

// MockResolvedFieldRepo is a mock implementation of port.ResolvedFieldRepository.
type MockResolvedFieldRepo struct {
	mock.Mock
}

func (m *MockResolvedFieldRepo) Upsert(ctx context.Context, field *domain.ResolvedField) error {
	args := m.Called(ctx, field)
	return args.Error(0)
}

func (m *MockResolvedFieldRepo) ListByDocument(ctx context.Context, docID uuid.UUID) ([]domain.ResolvedField, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ResolvedField), args.Error(1)
}

func (m *MockResolvedFieldRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.ResolvedField, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ResolvedField), args.Error(1)
}

func (m *MockResolvedFieldRepo) DeleteByDocument(ctx context.Context, docID uuid.UUID) error {
	args := m.Called(ctx, docID)
	return args.Error(0)
}

// MockFindingRepo is a mock implementation of port.FindingRepository.
type MockFindingRepo struct {
	mock.Mock
}

func (m *MockFindingRepo) CreateBatch(ctx context.Context, findings []domain.Finding) error {
	args := m.Called(ctx, findings)
	return args.Error(0)
}

func (m *MockFindingRepo) ListByDocument(ctx context.Context, docID uuid.UUID) ([]domain.Finding, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Finding), args.Error(1)
}

func (m *MockFindingRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.Finding, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Finding), args.Error(1)
}

func (m *MockFindingRepo) DeleteByDocument(ctx context.Context, docID uuid.UUID) error {
	args := m.Called(ctx, docID)
	return args.Error(0)
}

// MockResolutionCacheRepo is a mock implementation of port.ResolutionCacheRepository.
type MockResolutionCacheRepo struct {
	mock.Mock
}

func (m *MockResolutionCacheRepo) Get(ctx context.Context, scopeKind domain.ScopeKind, scopeID uuid.UUID, fieldName string) (*domain.ResolutionCacheEntry, error) {
	args := m.Called(ctx, scopeKind, scopeID, fieldName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResolutionCacheEntry), args.Error(1)
}

func (m *MockResolutionCacheRepo) Put(ctx context.Context, entry *domain.ResolutionCacheEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockResolutionCacheRepo) DeleteByScope(ctx context.Context, scopeKind domain.ScopeKind, scopeID uuid.UUID) error {
	args := m.Called(ctx, scopeKind, scopeID)
	return args.Error(0)
}

// MockArtifactRepo is a mock implementation of port.ArtifactRepository.
type MockArtifactRepo struct {
	mock.Mock
}

func (m *MockArtifactRepo) Create(ctx context.Context, artifact *domain.Artifact) error {
	args := m.Called(ctx, artifact)
	return args.Error(0)
}

func (m *MockArtifactRepo) ListByDocument(ctx context.Context, docID uuid.UUID) ([]domain.Artifact, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Artifact), args.Error(1)
}

// MockRuleRepo is a mock implementation of port.RuleRepository.
type MockRuleRepo struct {
	mock.Mock
}

func (m *MockRuleRepo) UpsertBatch(ctx context.Context, rules []domain.Rule) error {
	args := m.Called(ctx, rules)
	return args.Error(0)
}

func (m *MockRuleRepo) ListAll(ctx context.Context) ([]domain.Rule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Rule), args.Error(1)
}

func (m *MockRuleRepo) ListByDocumentType(ctx context.Context, docType domain.DocumentType) ([]domain.Rule, error) {
	args := m.Called(ctx, docType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Rule), args.Error(1)
}
