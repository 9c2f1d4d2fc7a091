package gate

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"planproof/internal/domain"
	"planproof/mocks"
)

func llmEntry(scopeID uuid.UUID, field, value string, confidence float64) *domain.ResolutionCacheEntry {
	return &domain.ResolutionCacheEntry{
		ScopeKind:  domain.ScopeSubmission,
		ScopeID:    scopeID,
		FieldName:  field,
		Value:      value,
		Confidence: confidence,
		ResolvedBy: domain.ResolvedByLLM,
	}
}

func deterministicField(name, value string, confidence float64) domain.ResolvedField {
	return domain.ResolvedField{
		FieldName:  name,
		Value:      value,
		Confidence: confidence,
		ResolvedBy: domain.ResolvedByDeterministic,
	}
}

func TestSupersedeRefreshesStaleLLMEntry(t *testing.T) {
	scopeID := uuid.New()
	repo := new(mocks.MockResolutionCacheRepo)
	repo.On("Get", mock.Anything, domain.ScopeSubmission, scopeID, domain.FieldPostcode).
		Return(llmEntry(scopeID, domain.FieldPostcode, "B8 1BG", 0.75), nil)
	repo.On("Put", mock.Anything, mock.Anything).Return(nil)

	c := NewCache(repo)
	c.Supersede(context.Background(), domain.ScopeSubmission, scopeID,
		[]domain.ResolvedField{deterministicField(domain.FieldPostcode, "B9 4AA", 0.90)})

	repo.AssertCalled(t, "Put", mock.Anything, mock.MatchedBy(func(e *domain.ResolutionCacheEntry) bool {
		return e.FieldName == domain.FieldPostcode &&
			e.Value == "B9 4AA" &&
			e.ResolvedBy == domain.ResolvedByDeterministic
	}))
}

func TestSupersedeAcceptsEqualConfidence(t *testing.T) {
	// Equal confidence still wins: the deterministic value is fresher.
	scopeID := uuid.New()
	repo := new(mocks.MockResolutionCacheRepo)
	repo.On("Get", mock.Anything, domain.ScopeSubmission, scopeID, domain.FieldPostcode).
		Return(llmEntry(scopeID, domain.FieldPostcode, "B8 1BG", 0.75), nil)
	repo.On("Put", mock.Anything, mock.Anything).Return(nil)

	c := NewCache(repo)
	c.Supersede(context.Background(), domain.ScopeSubmission, scopeID,
		[]domain.ResolvedField{deterministicField(domain.FieldPostcode, "B9 4AA", 0.75)})

	repo.AssertNumberOfCalls(t, "Put", 1)
}

func TestSupersedeKeepsHigherConfidenceLLMEntry(t *testing.T) {
	scopeID := uuid.New()
	repo := new(mocks.MockResolutionCacheRepo)
	repo.On("Get", mock.Anything, domain.ScopeSubmission, scopeID, domain.FieldPostcode).
		Return(llmEntry(scopeID, domain.FieldPostcode, "B8 1BG", 0.75), nil)

	c := NewCache(repo)
	c.Supersede(context.Background(), domain.ScopeSubmission, scopeID,
		[]domain.ResolvedField{deterministicField(domain.FieldPostcode, "B9 4AA", 0.60)})

	repo.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestSupersedeIgnoresDeterministicEntries(t *testing.T) {
	scopeID := uuid.New()
	entry := llmEntry(scopeID, domain.FieldPostcode, "B8 1BG", 0.60)
	entry.ResolvedBy = domain.ResolvedByDeterministic

	repo := new(mocks.MockResolutionCacheRepo)
	repo.On("Get", mock.Anything, domain.ScopeSubmission, scopeID, domain.FieldPostcode).
		Return(entry, nil)

	c := NewCache(repo)
	c.Supersede(context.Background(), domain.ScopeSubmission, scopeID,
		[]domain.ResolvedField{deterministicField(domain.FieldPostcode, "B9 4AA", 0.90)})

	repo.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestSupersedeSkipsLLMResolvedFields(t *testing.T) {
	scopeID := uuid.New()
	repo := new(mocks.MockResolutionCacheRepo)

	c := NewCache(repo)
	c.Supersede(context.Background(), domain.ScopeSubmission, scopeID,
		[]domain.ResolvedField{{
			FieldName:  domain.FieldPostcode,
			Value:      "B9 4AA",
			Confidence: 0.70,
			ResolvedBy: domain.ResolvedByLLM,
		}})

	repo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
