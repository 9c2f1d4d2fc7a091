package port

import (
	"context"

	"planproof/internal/domain"
)

// ResolveInput carries one bounded field-resolution request. EvidenceUnits is
// the trimmed set of text units the model may cite; nothing outside it is sent.
type ResolveInput struct {
	DocumentType  domain.DocumentType
	MissingFields []string
	EvidenceUnits []domain.TextUnit
}

// FieldResolution is one resolved field from the model. CitedUnitID must name
// a unit from the request's EvidenceUnits or the resolution is discarded.
type FieldResolution struct {
	FieldName   string  `json:"field_name"`
	Value       string  `json:"value"`
	CitedUnitID string  `json:"cited_unit_id"`
	Confidence  float64 `json:"confidence"`
}

// ResolveOutput contains the model's field resolutions plus audit metadata.
type ResolveOutput struct {
	Resolutions []FieldResolution
	ModelUsed   string
	RawResponse string
}

// FieldResolver abstracts LLM-based field resolution.
type FieldResolver interface {
	Resolve(ctx context.Context, input ResolveInput) (*ResolveOutput, error)
}
