package gate

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"planproof/internal/config"
	"planproof/internal/domain"
	"planproof/internal/evidence"
	"planproof/internal/port"
	"planproof/internal/rules"
)

// Failure is a non-fatal gate error. It is recorded as an artifact and the
// affected findings harden per severity; it never aborts the document.
type Failure struct {
	Stage string
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("llm gate failure at %s: %v", f.Stage, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Request records what the gate asked for, kept as an audit artifact.
type Request struct {
	MissingFields   []string `json:"missing_fields"`
	AffectedRules   []string `json:"affected_rules"`
	EvidenceUnitIDs []string `json:"evidence_unit_ids"`
}

// Outcome is the result of one gate decision for one document.
type Outcome struct {
	Triggered  bool
	Reason     string
	Candidates []domain.FieldCandidate
	Request    *Request
	ModelUsed  string
	Failure    *Failure
	// LLMCalled reports whether this run issued its own resolver call,
	// counting failed calls as spend. Cache hits and results shared with a
	// concurrent identical request leave it false.
	LLMCalled bool
}

// Gate decides whether unresolved required fields justify an LLM call, makes
// the call, and validates the response. Concurrent identical requests for
// the same document collapse into one external call.
type Gate struct {
	cfg      *config.ExtractionConfig
	resolver port.FieldResolver
	cache    *Cache
	sf       singleflight.Group
}

// New creates an LLM gate.
func New(cfg *config.ExtractionConfig, resolver port.FieldResolver, cache *Cache) *Gate {
	return &Gate{cfg: cfg, resolver: resolver, cache: cache}
}

// Run applies the gate predicate and, when it triggers, resolves the missing
// fields. The returned outcome is always usable; failures are carried inside.
func (g *Gate) Run(ctx context.Context, docType domain.DocumentType, scopeKind domain.ScopeKind, scopeID uuid.UUID, idx *evidence.Index, findings []domain.Finding) *Outcome {
	escalatable := rules.EscalatableFields(findings)
	if len(escalatable) == 0 {
		return &Outcome{Reason: "no error-severity gaps"}
	}

	var owned []string
	for _, f := range escalatable {
		if domain.OwnsField(docType, f) {
			owned = append(owned, f)
		}
	}
	if len(owned) == 0 {
		return &Outcome{Reason: fmt.Sprintf("no missing field is ownable by %s", docType)}
	}

	// Cache hits satisfy their fields without a call.
	out := &Outcome{}
	var missing []string
	for _, f := range owned {
		entry, err := g.cache.Lookup(ctx, scopeKind, scopeID, f)
		if err != nil {
			log.Printf("gate.Gate.Run: cache lookup failed for %s: %v", f, err)
		}
		if entry != nil && entry.Confidence >= g.cfg.PassThreshold {
			out.Candidates = append(out.Candidates, cachedCandidate(idx.DocumentID(), scopeKind, entry))
			continue
		}
		missing = append(missing, f)
	}
	if len(missing) == 0 {
		out.Reason = "all gaps satisfied from resolution cache"
		return out
	}

	if idx.Len() < g.cfg.GateMinTextUnits {
		out.Reason = fmt.Sprintf("too little text to justify a call (%d units)", idx.Len())
		return out
	}

	out.Triggered = true
	sort.Strings(missing)
	units := SelectEvidence(idx, missing)
	out.Request = &Request{
		MissingFields:   missing,
		AffectedRules:   affectedRules(findings),
		EvidenceUnitIDs: unitIDs(units),
	}

	// The key is per document: unit IDs are positional, so a response for one
	// document must never be validated against another document's index. Spend
	// dedup across documents comes from the resolution cache instead.
	key := fmt.Sprintf("%s/%s/%s/%s", scopeKind, scopeID, idx.DocumentID(), strings.Join(missing, ","))
	v, err, shared := g.sf.Do(key, func() (interface{}, error) {
		return g.resolver.Resolve(ctx, port.ResolveInput{
			DocumentType:  docType,
			MissingFields: missing,
			EvidenceUnits: units,
		})
	})
	out.LLMCalled = !shared
	if err != nil {
		out.Failure = &Failure{Stage: "resolver", Err: err}
		log.Printf("gate.Gate.Run: %v", out.Failure)
		return out
	}

	resp := v.(*port.ResolveOutput)
	out.ModelUsed = resp.ModelUsed
	applied := g.applyResolutions(ctx, out, resp, idx, missing, scopeKind, scopeID)
	if applied == 0 {
		out.Failure = &Failure{Stage: "citation", Err: fmt.Errorf("no resolution carried a usable citation")}
		log.Printf("gate.Gate.Run: %v", out.Failure)
	}
	return out
}

// applyResolutions validates each model resolution and converts the usable
// ones into candidates. A resolution without a citation into the evidence
// index is rejected outright.
func (g *Gate) applyResolutions(ctx context.Context, out *Outcome, resp *port.ResolveOutput, idx *evidence.Index, missing []string, scopeKind domain.ScopeKind, scopeID uuid.UUID) int {
	wanted := make(map[string]bool, len(missing))
	for _, f := range missing {
		wanted[f] = true
	}

	applied := 0
	for _, r := range resp.Resolutions {
		if !wanted[r.FieldName] || strings.TrimSpace(r.Value) == "" {
			continue
		}
		unit, ok := idx.Lookup(r.CitedUnitID)
		if !ok {
			log.Printf("gate.Gate: rejecting %s, citation %q not in evidence index", r.FieldName, r.CitedUnitID)
			continue
		}
		conf := r.Confidence
		if conf > g.cfg.LLMCeiling {
			conf = g.cfg.LLMCeiling
		}
		if conf < g.cfg.MinAcceptance {
			continue
		}

		out.Candidates = append(out.Candidates, domain.FieldCandidate{
			FieldName:   r.FieldName,
			Value:       r.Value,
			Confidence:  conf,
			Evidence:    idx.Reference(unit),
			ExtractorID: "llm_gate",
			Tier:        domain.TierLLM,
		})
		applied++

		if err := g.cache.Store(ctx, scopeKind, scopeID, r.FieldName, r.Value, conf, domain.ResolvedByLLM); err != nil {
			log.Printf("gate.Gate: cache store failed for %s: %v", r.FieldName, err)
		}
	}
	return applied
}

func cachedCandidate(docID uuid.UUID, scopeKind domain.ScopeKind, entry *domain.ResolutionCacheEntry) domain.FieldCandidate {
	tier := domain.TierLLM
	if entry.ResolvedBy == domain.ResolvedByDeterministic {
		tier = domain.TierLabeled
	}
	return domain.FieldCandidate{
		FieldName:   entry.FieldName,
		Value:       entry.Value,
		Confidence:  entry.Confidence,
		ExtractorID: "resolution_cache",
		Tier:        tier,
		Evidence: domain.EvidenceReference{
			DocumentID: docID,
			Snippet:    fmt.Sprintf("resolution cache (%s scope)", scopeKind),
		},
	}
}

func affectedRules(findings []domain.Finding) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range findings {
		if f.Status == domain.FindingStatusNeedsReview && f.Severity == domain.SeverityError && !seen[f.RuleID] {
			seen[f.RuleID] = true
			out = append(out, f.RuleID)
		}
	}
	sort.Strings(out)
	return out
}

func unitIDs(units []domain.TextUnit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.ID
	}
	return out
}
