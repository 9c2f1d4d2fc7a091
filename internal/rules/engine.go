package rules

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"planproof/internal/config"
	"planproof/internal/domain"
)

// Pass identifies which evaluation round is running. On the first pass an
// unmet error-severity rule stays at needs_review so the gate can try to fill
// the gap; on the final pass it hardens to fail.
type Pass int

const (
	FirstPass Pass = iota
	FinalPass
)

// Engine evaluates document-type-scoped rules against resolved fields.
type Engine struct {
	cfg *config.ExtractionConfig
}

// NewEngine creates a rule engine.
func NewEngine(cfg *config.ExtractionConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Evaluate produces one finding per rule applicable to the document's type.
// Rules scoped to other types yield nothing. Output order follows rule order,
// so identical inputs produce identical finding sets.
func (e *Engine) Evaluate(docID uuid.UUID, docType domain.DocumentType, ruleSet []domain.Rule, fields []domain.ResolvedField, pass Pass) []domain.Finding {
	byName := make(map[string]domain.ResolvedField, len(fields))
	for _, f := range fields {
		byName[f.FieldName] = f
	}

	now := time.Now().UTC()
	var out []domain.Finding
	for i := range ruleSet {
		r := &ruleSet[i]
		if !r.AppliesToType(docType) {
			continue
		}
		f := e.evaluateRule(docID, docType, r, byName, pass)
		f.CreatedAt = now
		out = append(out, f)
	}
	return out
}

func (e *Engine) evaluateRule(docID uuid.UUID, docType domain.DocumentType, r *domain.Rule, fields map[string]domain.ResolvedField, pass Pass) domain.Finding {
	var missing []string
	var partial []domain.EvidenceReference
	met := 0

	for _, name := range r.RequiredFields {
		f, ok := fields[name]
		if ok && f.Confidence >= e.cfg.PassThreshold {
			met++
			continue
		}
		missing = append(missing, name)
		if ok {
			// Resolved but below threshold: keep its evidence so the
			// finding can explain what was almost good enough.
			partial = append(partial, f.Evidence)
		}
	}

	satisfied := met == len(r.RequiredFields)
	if r.RequiredFieldsAny {
		satisfied = met > 0
	}

	if satisfied {
		return domain.Finding{
			ID:         uuid.New(),
			DocumentID: docID,
			RuleID:     r.RuleID,
			Status:     domain.FindingStatusPass,
			Severity:   r.Severity,
			Message:    r.Description,
		}
	}

	sort.Strings(missing)
	status := domain.FindingStatusNeedsReview
	if r.Severity == domain.SeverityError && pass == FinalPass {
		status = domain.FindingStatusFail
	}

	return domain.Finding{
		ID:            uuid.New(),
		DocumentID:    docID,
		RuleID:        r.RuleID,
		Status:        status,
		Severity:      r.Severity,
		Message:       unmetMessage(r, missing),
		MissingFields: missing,
		Evidence:      partial,
	}
}

func unmetMessage(r *domain.Rule, missing []string) string {
	mode := "all of"
	if r.RequiredFieldsAny {
		mode = "any of"
	}
	return fmt.Sprintf("%s: requires %s [%s], missing %s",
		r.RuleID, mode, strings.Join(r.RequiredFields, ", "), strings.Join(missing, ", "))
}

// EscalatableFields returns the missing fields from error-severity
// needs_review findings, deduplicated in first-seen order. These are the only
// gaps the gate may spend an LLM call on.
func EscalatableFields(findings []domain.Finding) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range findings {
		if f.Status != domain.FindingStatusNeedsReview || f.Severity != domain.SeverityError {
			continue
		}
		for _, m := range f.MissingFields {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out
}
