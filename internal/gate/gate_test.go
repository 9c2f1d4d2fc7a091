package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"planproof/internal/config"
	"planproof/internal/domain"
	"planproof/internal/evidence"
	"planproof/internal/port"
	"planproof/mocks"
)

func testCfg() *config.ExtractionConfig {
	return &config.ExtractionConfig{
		LLMCeiling:       0.75,
		MinAcceptance:    0.30,
		PassThreshold:    0.70,
		GateMinTextUnits: 5,
	}
}

func testIndex(docID uuid.UUID, n int) *evidence.Index {
	ex := &domain.Extraction{PageCount: 1}
	for i := 0; i < n; i++ {
		ex.TextBlocks = append(ex.TextBlocks, domain.TextUnit{
			PageNumber: 1,
			Content:    fmt.Sprintf("The proposed development text %d", i),
		})
	}
	return evidence.BuildIndex(docID, ex)
}

func errorGap(fields ...string) []domain.Finding {
	return []domain.Finding{{
		RuleID:        "R4",
		Status:        domain.FindingStatusNeedsReview,
		Severity:      domain.SeverityError,
		MissingFields: fields,
	}}
}

func newTestGate(resolver port.FieldResolver, cacheRepo *mocks.MockResolutionCacheRepo) *Gate {
	return New(testCfg(), resolver, NewCache(cacheRepo))
}

func TestGateTriggersAndAppliesCitedResolution(t *testing.T) {
	docID := uuid.New()
	scopeID := uuid.New()
	idx := testIndex(docID, 10)

	resolver := new(mocks.MockFieldResolver)
	cacheRepo := new(mocks.MockResolutionCacheRepo)
	cacheRepo.On("Get", mock.Anything, domain.ScopeSubmission, scopeID, domain.FieldProposedUse).
		Return(nil, domain.ErrNotFound)
	cacheRepo.On("Put", mock.Anything, mock.Anything).Return(nil)
	resolver.On("Resolve", mock.Anything, mock.MatchedBy(func(in port.ResolveInput) bool {
		return len(in.MissingFields) == 1 && in.MissingFields[0] == domain.FieldProposedUse
	})).Return(&port.ResolveOutput{
		ModelUsed: "claude-sonnet-4",
		Resolutions: []port.FieldResolution{{
			FieldName:   domain.FieldProposedUse,
			Value:       "Change of use to HMO",
			CitedUnitID: "p1b2",
			Confidence:  0.9,
		}},
	}, nil)

	g := newTestGate(resolver, cacheRepo)
	out := g.Run(context.Background(), domain.DocTypeApplicationForm, domain.ScopeSubmission, scopeID, idx, errorGap(domain.FieldProposedUse))

	require.True(t, out.Triggered)
	assert.True(t, out.LLMCalled)
	assert.Nil(t, out.Failure)
	require.Len(t, out.Candidates, 1)
	c := out.Candidates[0]
	assert.Equal(t, domain.FieldProposedUse, c.FieldName)
	assert.Equal(t, domain.TierLLM, c.Tier)
	// Model confidence above the LLM ceiling is clamped.
	assert.InDelta(t, 0.75, c.Confidence, 0.001)
	assert.Equal(t, "p1b2", c.Evidence.UnitID)

	cacheRepo.AssertCalled(t, "Put", mock.Anything, mock.MatchedBy(func(e *domain.ResolutionCacheEntry) bool {
		return e.FieldName == domain.FieldProposedUse && e.ResolvedBy == domain.ResolvedByLLM
	}))
}

func TestGateSkipsWarningOnlyGaps(t *testing.T) {
	resolver := new(mocks.MockFieldResolver)
	cacheRepo := new(mocks.MockResolutionCacheRepo)
	g := newTestGate(resolver, cacheRepo)

	findings := []domain.Finding{{
		RuleID:        "R6",
		Status:        domain.FindingStatusNeedsReview,
		Severity:      domain.SeverityWarning,
		MissingFields: []string{domain.FieldAgentName},
	}}
	out := g.Run(context.Background(), domain.DocTypeApplicationForm, domain.ScopeSubmission, uuid.New(), testIndex(uuid.New(), 10), findings)

	assert.False(t, out.Triggered)
	resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestGateRespectsFieldOwnership(t *testing.T) {
	// A drawing cannot supply the applicant's email, so the gate must not
	// spend a call on it.
	resolver := new(mocks.MockFieldResolver)
	cacheRepo := new(mocks.MockResolutionCacheRepo)
	g := newTestGate(resolver, cacheRepo)

	out := g.Run(context.Background(), domain.DocTypeDrawing, domain.ScopeSubmission, uuid.New(), testIndex(uuid.New(), 10), errorGap(domain.FieldApplicantEmail))

	assert.False(t, out.Triggered)
	resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestGateUsesCacheInsteadOfCalling(t *testing.T) {
	scopeID := uuid.New()
	resolver := new(mocks.MockFieldResolver)
	cacheRepo := new(mocks.MockResolutionCacheRepo)
	cacheRepo.On("Get", mock.Anything, domain.ScopeSubmission, scopeID, domain.FieldProposedUse).
		Return(&domain.ResolutionCacheEntry{
			ScopeKind:  domain.ScopeSubmission,
			ScopeID:    scopeID,
			FieldName:  domain.FieldProposedUse,
			Value:      "Change of use to HMO",
			Confidence: 0.75,
			ResolvedBy: domain.ResolvedByLLM,
		}, nil)

	g := newTestGate(resolver, cacheRepo)
	out := g.Run(context.Background(), domain.DocTypeApplicationForm, domain.ScopeSubmission, scopeID, testIndex(uuid.New(), 10), errorGap(domain.FieldProposedUse))

	assert.False(t, out.Triggered)
	assert.False(t, out.LLMCalled)
	require.Len(t, out.Candidates, 1)
	assert.Equal(t, "Change of use to HMO", out.Candidates[0].Value)
	assert.Equal(t, "resolution_cache", out.Candidates[0].ExtractorID)
	resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestGateSkipsSparseDocuments(t *testing.T) {
	scopeID := uuid.New()
	resolver := new(mocks.MockFieldResolver)
	cacheRepo := new(mocks.MockResolutionCacheRepo)
	cacheRepo.On("Get", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domain.ErrNotFound)

	g := newTestGate(resolver, cacheRepo)
	out := g.Run(context.Background(), domain.DocTypeApplicationForm, domain.ScopeSubmission, scopeID, testIndex(uuid.New(), 3), errorGap(domain.FieldProposedUse))

	assert.False(t, out.Triggered)
	resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestGateResolverFailureIsNonFatal(t *testing.T) {
	scopeID := uuid.New()
	resolver := new(mocks.MockFieldResolver)
	cacheRepo := new(mocks.MockResolutionCacheRepo)
	cacheRepo.On("Get", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domain.ErrNotFound)
	resolver.On("Resolve", mock.Anything, mock.Anything).
		Return(nil, errors.New("request timed out"))

	g := newTestGate(resolver, cacheRepo)
	out := g.Run(context.Background(), domain.DocTypeApplicationForm, domain.ScopeSubmission, scopeID, testIndex(uuid.New(), 10), errorGap(domain.FieldProposedUse))

	require.True(t, out.Triggered)
	require.NotNil(t, out.Failure)
	assert.Equal(t, "resolver", out.Failure.Stage)
	assert.Empty(t, out.Candidates)
	// A failed call is still spend; it counts.
	assert.True(t, out.LLMCalled)
}

// echoResolver answers each call by citing the first evidence unit it was
// sent, and holds in-flight calls together so overlapping runs overlap at
// the resolver too.
type echoResolver struct {
	mu    sync.Mutex
	calls int
	both  chan struct{}
}

func (r *echoResolver) Resolve(ctx context.Context, in port.ResolveInput) (*port.ResolveOutput, error) {
	r.mu.Lock()
	r.calls++
	if r.calls == 2 {
		close(r.both)
	}
	r.mu.Unlock()
	select {
	case <-r.both:
	case <-time.After(500 * time.Millisecond):
	}

	u := in.EvidenceUnits[0]
	return &port.ResolveOutput{
		ModelUsed: "claude-sonnet-4",
		Resolutions: []port.FieldResolution{{
			FieldName:   in.MissingFields[0],
			Value:       u.Content,
			CitedUnitID: u.ID,
			Confidence:  0.7,
		}},
	}, nil
}

func proposalIndex(street string) *evidence.Index {
	ex := &domain.Extraction{PageCount: 1}
	for i := 0; i < 6; i++ {
		ex.TextBlocks = append(ex.TextBlocks, domain.TextUnit{
			PageNumber: 1,
			Content:    fmt.Sprintf("Proposed development at %s, note %d", street, i),
		})
	}
	return evidence.BuildIndex(uuid.New(), ex)
}

func TestGateNeverSharesCallsAcrossDocuments(t *testing.T) {
	// Two documents in one run missing the same field must each get their own
	// resolver call: unit IDs are positional, so one document's citation would
	// otherwise be validated against the other document's evidence.
	scopeID := uuid.New()
	idxA := proposalIndex("12 High Street, Birmingham")
	idxB := proposalIndex("9 River Lane, Leeds")

	cacheRepo := new(mocks.MockResolutionCacheRepo)
	cacheRepo.On("Get", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domain.ErrNotFound)
	cacheRepo.On("Put", mock.Anything, mock.Anything).Return(nil)

	resolver := &echoResolver{both: make(chan struct{})}
	g := newTestGate(resolver, cacheRepo)

	var outA, outB *Outcome
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		outA = g.Run(context.Background(), domain.DocTypeApplicationForm, domain.ScopeSubmission, scopeID, idxA, errorGap(domain.FieldProposedUse))
	}()
	go func() {
		defer wg.Done()
		outB = g.Run(context.Background(), domain.DocTypeApplicationForm, domain.ScopeSubmission, scopeID, idxB, errorGap(domain.FieldProposedUse))
	}()
	wg.Wait()

	assert.Equal(t, 2, resolver.calls)
	assert.True(t, outA.LLMCalled)
	assert.True(t, outB.LLMCalled)

	require.Len(t, outA.Candidates, 1)
	require.Len(t, outB.Candidates, 1)
	assert.Contains(t, outA.Candidates[0].Evidence.Snippet, "High Street")
	assert.Contains(t, outB.Candidates[0].Evidence.Snippet, "River Lane")
}

func TestGateRejectsUncitedResolutions(t *testing.T) {
	scopeID := uuid.New()
	resolver := new(mocks.MockFieldResolver)
	cacheRepo := new(mocks.MockResolutionCacheRepo)
	cacheRepo.On("Get", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domain.ErrNotFound)
	resolver.On("Resolve", mock.Anything, mock.Anything).Return(&port.ResolveOutput{
		Resolutions: []port.FieldResolution{{
			FieldName:   domain.FieldProposedUse,
			Value:       "Change of use to HMO",
			CitedUnitID: "p99b99",
			Confidence:  0.9,
		}},
	}, nil)

	g := newTestGate(resolver, cacheRepo)
	out := g.Run(context.Background(), domain.DocTypeApplicationForm, domain.ScopeSubmission, scopeID, testIndex(uuid.New(), 10), errorGap(domain.FieldProposedUse))

	require.True(t, out.Triggered)
	assert.Empty(t, out.Candidates)
	require.NotNil(t, out.Failure)
	assert.Equal(t, "citation", out.Failure.Stage)
	cacheRepo.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestGateRecordsBoundedRequest(t *testing.T) {
	scopeID := uuid.New()
	resolver := new(mocks.MockFieldResolver)
	cacheRepo := new(mocks.MockResolutionCacheRepo)
	cacheRepo.On("Get", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domain.ErrNotFound)
	resolver.On("Resolve", mock.Anything, mock.Anything).Return(&port.ResolveOutput{}, nil)

	g := newTestGate(resolver, cacheRepo)
	out := g.Run(context.Background(), domain.DocTypeApplicationForm, domain.ScopeSubmission, scopeID, testIndex(uuid.New(), 10), errorGap(domain.FieldProposedUse))

	require.NotNil(t, out.Request)
	assert.Equal(t, []string{domain.FieldProposedUse}, out.Request.MissingFields)
	assert.Equal(t, []string{"R4"}, out.Request.AffectedRules)
	assert.NotEmpty(t, out.Request.EvidenceUnitIDs)
	assert.LessOrEqual(t, len(out.Request.EvidenceUnitIDs), 40)
}

func TestSelectEvidenceIsBoundedAndRelevant(t *testing.T) {
	docID := uuid.New()
	ex := &domain.Extraction{PageCount: 1}
	for i := 0; i < 100; i++ {
		ex.TextBlocks = append(ex.TextBlocks, domain.TextUnit{
			PageNumber: 1,
			Content:    fmt.Sprintf("The proposed development unit %d", i),
		})
	}
	ex.TextBlocks = append(ex.TextBlocks, domain.TextUnit{PageNumber: 2, Content: "irrelevant boilerplate"})
	idx := evidence.BuildIndex(docID, ex)

	units := SelectEvidence(idx, []string{domain.FieldProposedUse})
	assert.Len(t, units, 40)
	for _, u := range units {
		assert.Contains(t, u.Content, "proposed")
	}
}
