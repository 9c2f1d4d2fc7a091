package extract

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planproof/internal/config"
	"planproof/internal/domain"
	"planproof/internal/evidence"
)

func testCfg() *config.ExtractionConfig {
	return &config.ExtractionConfig{
		StructuredCeiling: 0.95,
		LabeledCeiling:    0.85,
		PatternCeiling:    0.90,
		HeuristicCeiling:  0.60,
		LLMCeiling:        0.75,
		MinAcceptance:     0.30,
		PassThreshold:     0.70,
		ContactFloor:      0.10,
		GateMinTextUnits:  5,
	}
}

func indexOf(t *testing.T, contents ...string) *evidence.Index {
	t.Helper()
	ex := &domain.Extraction{PageCount: 1}
	for _, c := range contents {
		ex.TextBlocks = append(ex.TextBlocks, domain.TextUnit{PageNumber: 1, Content: c})
	}
	return evidence.BuildIndex(uuid.New(), ex)
}

func candidateFor(cands []domain.FieldCandidate, field string) (domain.FieldCandidate, bool) {
	for _, c := range cands {
		if c.FieldName == field {
			return c, true
		}
	}
	return domain.FieldCandidate{}, false
}

func TestPatternApplicationRef(t *testing.T) {
	e := NewEngine(testCfg())

	idx := indexOf(t, "Planning Portal Reference: PP-14469287")
	cands := e.Extract(idx, domain.DocTypeApplicationForm)
	c, ok := candidateFor(cands, domain.FieldApplicationRef)
	require.True(t, ok)
	assert.Equal(t, "PP-14469287", c.Value)
	assert.InDelta(t, 0.9, c.Confidence, 0.001)
	assert.Equal(t, domain.TierPattern, c.Tier)
	assert.NotEmpty(t, c.Evidence.UnitID)

	idx = indexOf(t, "Application reference 20241234ABC received")
	cands = e.Extract(idx, domain.DocTypeApplicationForm)
	c, ok = candidateFor(cands, domain.FieldApplicationRef)
	require.True(t, ok)
	assert.Equal(t, "20241234ABC", c.Value)
	assert.InDelta(t, 0.8, c.Confidence, 0.001)
}

func TestPostcodePrefersSiteOverCouncilContact(t *testing.T) {
	// A council PO box postcode appears before the site postcode. The
	// council candidate is floored and must lose.
	e := NewEngine(testCfg())
	idx := indexOf(t,
		"Planning Department, Birmingham City Council, PO Box 28, B1 1TU",
		"Site address: 12 High Street",
		"Postcode: B8 1BG",
	)

	cands := e.Extract(idx, domain.DocTypeApplicationForm)
	c, ok := candidateFor(cands, domain.FieldPostcode)
	require.True(t, ok)
	assert.Equal(t, "B8 1BG", c.Value)
	assert.InDelta(t, 0.9, c.Confidence, 0.001)
}

func TestCouncilOnlyPostcodeIsDropped(t *testing.T) {
	// Only a council postcode present: floored to 0.1, below acceptance,
	// so no postcode candidate survives.
	e := NewEngine(testCfg())
	idx := indexOf(t,
		"Send comments to the Local Authority, PO Box 28, B1 1TU",
	)

	cands := e.Extract(idx, domain.DocTypeSitePlan)
	_, ok := candidateFor(cands, domain.FieldPostcode)
	assert.False(t, ok)
}

func TestContactsSkipCouncilBlocks(t *testing.T) {
	e := NewEngine(testCfg())
	idx := indexOf(t,
		"Queries: planning@birmingham.gov.uk or call 0121 464 1234",
		"Applicant details",
		"Email: jane.smith@example.com",
		"Phone: 07700 900123",
	)

	cands := e.Extract(idx, domain.DocTypeApplicationForm)

	email, ok := candidateFor(cands, domain.FieldApplicantEmail)
	require.True(t, ok)
	assert.Equal(t, "jane.smith@example.com", email.Value)
	assert.InDelta(t, 0.8, email.Confidence, 0.001)

	phone, ok := candidateFor(cands, domain.FieldApplicantPhone)
	require.True(t, ok)
	assert.Equal(t, "07700 900123", phone.Value)
}

func TestPhoneRejectsDates(t *testing.T) {
	e := NewEngine(testCfg())
	idx := indexOf(t, "Decision due by 12-04-2025 at the latest")

	cands := e.Extract(idx, domain.DocTypeApplicationForm)
	_, ok := candidateFor(cands, domain.FieldApplicantPhone)
	assert.False(t, ok)
}

func TestStructuredSiteLocationSection(t *testing.T) {
	e := NewEngine(testCfg())
	idx := indexOf(t,
		"Site Location",
		"Property Name: The Old Mill",
		"Address Line 1: 12 High Street",
		"Town/City: Birmingham",
		"Postcode: B8 1BG",
	)

	cands := e.Extract(idx, domain.DocTypeApplicationForm)
	c, ok := candidateFor(cands, domain.FieldSiteAddress)
	require.True(t, ok)
	assert.Equal(t, domain.TierStructured, c.Tier)
	assert.Equal(t, "The Old Mill, 12 High Street, Birmingham, B8 1BG", c.Value)
	assert.InDelta(t, 0.95, c.Confidence, 0.001)
}

func TestStructuredValueInFollowingBlock(t *testing.T) {
	e := NewEngine(testCfg())
	idx := indexOf(t,
		"Site address",
		"Address Line 1",
		"12 High Street",
		"Postcode",
		"B8 1BG",
	)

	cands := e.Extract(idx, domain.DocTypeApplicationForm)
	c, ok := candidateFor(cands, domain.FieldSiteAddress)
	require.True(t, ok)
	assert.Equal(t, domain.TierStructured, c.Tier)
	assert.Contains(t, c.Value, "12 High Street")
	assert.Contains(t, c.Value, "B8 1BG")
}

func TestDemolitionPatternAddress(t *testing.T) {
	e := NewEngine(testCfg())
	idx := indexOf(t,
		"Site Notice",
		"Notice is given of the demolition of Unit M, Dorset Road, Saltley Business Park, Saltley, Birmingham, B8 1BG",
	)

	cands := e.Extract(idx, domain.DocTypeSiteNotice)
	c, ok := candidateFor(cands, domain.FieldSiteAddress)
	require.True(t, ok)
	assert.Equal(t, domain.TierPattern, c.Tier)
	assert.Contains(t, c.Value, "Unit M, Dorset Road")
	assert.Contains(t, c.Value, "B8 1BG")
	assert.InDelta(t, 0.85, c.Confidence, 0.001)
}

func TestHeuristicAddressIgnoresNoiseAndGrids(t *testing.T) {
	e := NewEngine(testCfg())
	idx := indexOf(t,
		"Crown copyright and database rights 2024",
		"4 2447",
		"12 DORSET ROAD SALTLEY",
	)

	cands := e.Extract(idx, domain.DocTypeSitePlan)
	c, ok := candidateFor(cands, domain.FieldSiteAddress)
	require.True(t, ok)
	assert.Equal(t, "12 DORSET ROAD SALTLEY", c.Value)
	assert.Equal(t, domain.TierHeuristic, c.Tier)
	assert.InDelta(t, 0.4, c.Confidence, 0.001)
}

func TestHeuristicConfidenceClampedToTierCeiling(t *testing.T) {
	// An all-caps proposal line of 30+ chars scores 0.7 raw; the heuristic
	// ceiling caps it at 0.6.
	e := NewEngine(testCfg())
	idx := indexOf(t,
		"PROPOSED CONVERSION OF EXISTING BARN TO THREE DWELLINGS.",
	)

	cands := e.Extract(idx, domain.DocTypeDrawing)
	c, ok := candidateFor(cands, domain.FieldProposedUse)
	require.True(t, ok)
	assert.InDelta(t, 0.6, c.Confidence, 0.001)
}

func TestLabeledExtraction(t *testing.T) {
	e := NewEngine(testCfg())
	idx := indexOf(t,
		"Name of applicant: Jane Smith",
		"Agent name: Acme Planning Ltd",
		"Description of development: single storey rear extension",
	)

	cands := e.Extract(idx, domain.DocTypeApplicationForm)

	c, ok := candidateFor(cands, domain.FieldApplicantName)
	require.True(t, ok)
	assert.Equal(t, "Jane Smith", c.Value)
	assert.Equal(t, domain.TierLabeled, c.Tier)
	assert.InDelta(t, 0.7, c.Confidence, 0.001)

	c, ok = candidateFor(cands, domain.FieldAgentName)
	require.True(t, ok)
	assert.Equal(t, "Acme Planning Ltd", c.Value)

	c, ok = candidateFor(cands, domain.FieldProposalDescription)
	require.True(t, ok)
	assert.Equal(t, "single storey rear extension", c.Value)
}

func TestPriorApprovalProposedUseClampedToLabeledCeiling(t *testing.T) {
	e := NewEngine(testCfg())
	idx := indexOf(t,
		"I/We hereby apply for Prior Approval: change of use from agricultural building to dwellinghouse",
	)

	cands := e.Extract(idx, domain.DocTypeApplicationForm)
	c, ok := candidateFor(cands, domain.FieldProposedUse)
	require.True(t, ok)
	assert.Equal(t, domain.TierLabeled, c.Tier)
	assert.InDelta(t, 0.85, c.Confidence, 0.001)
	assert.Contains(t, c.Value, "change of use")
}

func TestEveryCandidateCarriesEvidence(t *testing.T) {
	e := NewEngine(testCfg())
	idx := indexOf(t,
		"Site Location",
		"Address Line 1: 12 High Street",
		"Postcode: B8 1BG",
		"Planning Portal Reference: PP-14469287",
		"Name of applicant: Jane Smith",
	)

	cands := e.Extract(idx, domain.DocTypeApplicationForm)
	require.NotEmpty(t, cands)
	for _, c := range cands {
		assert.NotEmpty(t, c.Evidence.UnitID, "candidate %s/%s has no evidence", c.ExtractorID, c.FieldName)
		_, found := idx.Lookup(c.Evidence.UnitID)
		assert.True(t, found, "evidence %s not in index", c.Evidence.UnitID)
	}
}
