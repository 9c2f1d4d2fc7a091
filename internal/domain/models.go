package domain

import (
	"time"

	"github.com/google/uuid"
)

// TextUnit is one OCR/layout unit (paragraph block or table cell) produced by
// the upstream document analyzer. Immutable once indexed.
type TextUnit struct {
	ID          string    `json:"id"`
	PageNumber  int       `json:"page_number"`
	Content     string    `json:"content"`
	BoundingBox []float64 `json:"bounding_box,omitempty"`
	Role        string    `json:"role,omitempty"` // e.g. "title", "sectionHeading", "tableCell"
}

// Table is a table detected by the analyzer, kept for evidence indexing.
type Table struct {
	PageNumber  int         `json:"page_number"`
	RowCount    int         `json:"row_count"`
	ColumnCount int         `json:"column_count"`
	Cells       []TableCell `json:"cells"`
}

// TableCell is one cell of a detected table.
type TableCell struct {
	RowIndex    int    `json:"row_index"`
	ColumnIndex int    `json:"column_index"`
	Content     string `json:"content"`
}

// Extraction is the raw output of a document analyzer for one document.
type Extraction struct {
	TextBlocks []TextUnit `json:"text_blocks"`
	Tables     []Table    `json:"tables"`
	PageCount  int        `json:"page_count"`
}

// EvidenceReference points at the specific source unit backing a derived
// value. It carries only a display snippet, never the full unit content.
type EvidenceReference struct {
	DocumentID uuid.UUID `json:"document_id"`
	UnitID     string    `json:"unit_id"`
	Page       int       `json:"page"`
	Snippet    string    `json:"snippet"`
}

// FieldCandidate is one extractor's proposal for a field value. Multiple
// candidates per field may coexist until resolution picks a winner.
type FieldCandidate struct {
	FieldName     string            `json:"field_name"`
	Value         string            `json:"value"`
	Confidence    float64           `json:"confidence"`
	Evidence      EvidenceReference `json:"evidence"`
	SourceDocType DocumentType      `json:"source_doc_type"`
	ExtractorID   string            `json:"extractor_id"`
	Tier          ExtractionTier    `json:"tier"`
}

// ResolvedField is the single authoritative value for one (document, field)
// pair. Overwritten only by a strictly higher-confidence candidate or by a
// permitted LLM result, never silently demoted.
type ResolvedField struct {
	ID            uuid.UUID         `json:"id"`
	DocumentID    uuid.UUID         `json:"document_id"`
	FieldName     string            `json:"field_name"`
	Value         string            `json:"value"`
	Confidence    float64           `json:"confidence"`
	Evidence      EvidenceReference `json:"evidence"`
	ResolvedBy    ResolvedBy        `json:"resolved_by"`
	Tier          ExtractionTier    `json:"tier"`
	LowConfidence bool              `json:"low_confidence"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Rule is one document-type-scoped validation rule. Loaded once per run and
// immutable during it.
type Rule struct {
	RuleID            string         `json:"rule_id"`
	Description       string         `json:"description"`
	RequiredFields    []string       `json:"required_fields"`
	RequiredFieldsAny bool           `json:"required_fields_any"`
	AppliesTo         []DocumentType `json:"applies_to"`
	Severity          RuleSeverity   `json:"severity"`
	Keywords          []string       `json:"keywords,omitempty"`
}

// AppliesToType reports whether the rule is in scope for a document type.
func (r *Rule) AppliesToType(t DocumentType) bool {
	for _, dt := range r.AppliesTo {
		if dt == t {
			return true
		}
	}
	return false
}

// Finding is the outcome of evaluating one rule against one document.
// Rules whose applies_to excludes the document's type produce no finding.
type Finding struct {
	ID            uuid.UUID           `json:"id"`
	DocumentID    uuid.UUID           `json:"document_id"`
	RuleID        string              `json:"rule_id"`
	Status        FindingStatus       `json:"status"`
	Severity      RuleSeverity        `json:"severity"`
	Message       string              `json:"message"`
	MissingFields []string            `json:"missing_fields,omitempty"`
	Evidence      []EvidenceReference `json:"evidence,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

// ResolutionCacheEntry is one cached field resolution, keyed by
// (scope_kind, scope_id, field_name). Consulted before any LLM call for the
// same scope+field; superseded by fresher deterministic extractions.
type ResolutionCacheEntry struct {
	ScopeKind  ScopeKind  `db:"scope_kind" json:"scope_kind"`
	ScopeID    uuid.UUID  `db:"scope_id" json:"scope_id"`
	FieldName  string     `db:"field_name" json:"field_name"`
	Value      string     `db:"value" json:"value"`
	Confidence float64    `db:"confidence" json:"confidence"`
	ResolvedBy ResolvedBy `db:"resolved_by" json:"resolved_by"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// Document is one uploaded planning-application PDF within a run.
type Document struct {
	ID              uuid.UUID        `db:"id" json:"id"`
	RunID           uuid.UUID        `db:"run_id" json:"run_id"`
	FileName        string           `db:"file_name" json:"file_name"`
	ContentType     string           `db:"content_type" json:"content_type"`
	FileSize        int64            `db:"file_size" json:"file_size"`
	S3Bucket        string           `db:"s3_bucket" json:"s3_bucket"`
	S3Key           string           `db:"s3_key" json:"s3_key"`
	DocumentType    DocumentType     `db:"document_type" json:"document_type"`
	MatchedPattern  string           `db:"matched_pattern" json:"matched_pattern"`
	PageCount       int              `db:"page_count" json:"page_count"`
	Status          ProcessingStatus `db:"status" json:"status"`
	ProcessingError string           `db:"processing_error" json:"processing_error"`
	Attempts        int              `db:"attempts" json:"attempts"`
	ProcessedAt     *time.Time       `db:"processed_at" json:"processed_at"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// Run is one batch submission of documents processed together. A run is the
// default resolution-cache scope (a "submission" in planning terms).
type Run struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ApplicationRef string     `db:"application_ref" json:"application_ref"`
	State          RunState   `db:"state" json:"state"`
	TotalDocuments int        `db:"total_documents" json:"total_documents"`
	Processed      int        `db:"processed" json:"processed"`
	Errors         int        `db:"errors" json:"errors"`
	LLMCalls       int        `db:"llm_calls" json:"llm_calls"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
	CompletedAt    *time.Time `db:"completed_at" json:"completed_at"`
}

// Artifact is a JSON side-output of one pipeline stage (extracted layout,
// gate request/response, non-fatal error records).
type Artifact struct {
	ID         uuid.UUID    `db:"id" json:"id"`
	DocumentID uuid.UUID    `db:"document_id" json:"document_id"`
	Type       ArtifactType `db:"artifact_type" json:"artifact_type"`
	Payload    []byte       `db:"payload" json:"payload"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
}

// DocumentResult bundles everything the pipeline produced for one document.
type DocumentResult struct {
	Document  *Document
	Fields    []ResolvedField
	Findings  []Finding
	Artifacts []Artifact
}
