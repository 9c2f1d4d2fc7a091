package domain

// DocumentType classifies a planning-application document by its layout text.
type DocumentType string

const (
	DocTypeApplicationForm DocumentType = "application_form"
	DocTypeSitePlan        DocumentType = "site_plan"
	DocTypeSiteNotice      DocumentType = "site_notice"
	DocTypeDesignStatement DocumentType = "design_statement"
	DocTypeDrawing         DocumentType = "drawing"
	DocTypeHeritage        DocumentType = "heritage"
	DocTypeUnknown         DocumentType = "unknown"
)

// KnownDocumentTypes lists every classifiable type, including the unknown fallback.
var KnownDocumentTypes = map[DocumentType]bool{
	DocTypeApplicationForm: true,
	DocTypeSitePlan:        true,
	DocTypeSiteNotice:      true,
	DocTypeDesignStatement: true,
	DocTypeDrawing:         true,
	DocTypeHeritage:        true,
	DocTypeUnknown:         true,
}

// ExtractionTier identifies the strategy class that produced a field candidate.
// Tiers are ordered: a lower-tier strategy can never outrank a higher tier
// already present for the same field.
type ExtractionTier string

const (
	TierStructured ExtractionTier = "structured"
	TierLabeled    ExtractionTier = "labeled"
	TierPattern    ExtractionTier = "pattern"
	TierHeuristic  ExtractionTier = "heuristic"
	TierLLM        ExtractionTier = "llm"
)

// TierRank returns the priority ordinal for a tier (higher wins ties).
func TierRank(t ExtractionTier) int {
	switch t {
	case TierStructured:
		return 5
	case TierLabeled:
		return 4
	case TierPattern:
		return 3
	case TierHeuristic:
		return 2
	case TierLLM:
		return 1
	default:
		return 0
	}
}

// FindingStatus is the terminal state of a rule evaluation for one document.
type FindingStatus string

const (
	FindingStatusPass        FindingStatus = "pass"
	FindingStatusNeedsReview FindingStatus = "needs_review"
	FindingStatusFail        FindingStatus = "fail"
)

// RuleSeverity controls whether an unmet rule may escalate to an LLM call.
type RuleSeverity string

const (
	SeverityError   RuleSeverity = "error"
	SeverityWarning RuleSeverity = "warning"
)

// ResolvedBy records which method produced an authoritative field value.
type ResolvedBy string

const (
	ResolvedByDeterministic ResolvedBy = "deterministic"
	ResolvedByLLM           ResolvedBy = "llm"
)

// ScopeKind is the key space for resolution cache entries.
type ScopeKind string

const (
	ScopeSubmission  ScopeKind = "submission"
	ScopeApplication ScopeKind = "application"
)

// ProcessingStatus is the lifecycle of a single document in a run.
type ProcessingStatus string

const (
	ProcessingStatusQueued     ProcessingStatus = "queued"
	ProcessingStatusProcessing ProcessingStatus = "processing"
	ProcessingStatusCompleted  ProcessingStatus = "completed"
	ProcessingStatusFailed     ProcessingStatus = "failed"
)

// RunState is the aggregate lifecycle of a batch run.
type RunState string

const (
	RunStateRunning             RunState = "running"
	RunStateCompleted           RunState = "completed"
	RunStateCompletedWithErrors RunState = "completed_with_errors"
	RunStateFailed              RunState = "failed"
)

// ArtifactType labels the JSON artifacts a pipeline stage emits.
type ArtifactType string

const (
	ArtifactExtractedLayout ArtifactType = "extracted_layout"
	ArtifactLLMGate         ArtifactType = "llm_gate"
	ArtifactLLMGateError    ArtifactType = "llm_gate_error"
	ArtifactExtractionError ArtifactType = "extraction_error"
)

// FileType represents the allowed file types for upload.
type FileType string

const (
	FileTypePDF FileType = "pdf"
)

// AllowedContentTypes maps MIME content types back to FileType.
var AllowedContentTypes = map[string]FileType{
	"application/pdf": FileTypePDF,
}
