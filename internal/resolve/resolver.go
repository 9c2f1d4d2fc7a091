package resolve

import (
	"time"

	"github.com/google/uuid"

	"planproof/internal/config"
	"planproof/internal/domain"
)

// Resolver arbitrates between competing field candidates. For each field the
// highest-confidence candidate wins; ties go to the higher extraction tier.
type Resolver struct {
	cfg *config.ExtractionConfig
}

// New creates a field resolver.
func New(cfg *config.ExtractionConfig) *Resolver {
	return &Resolver{cfg: cfg}
}

// Resolve reduces candidates to one resolved value per field. Winners below
// the pass threshold are kept but flagged low-confidence so the rule engine
// can treat them as present-but-weak.
func (r *Resolver) Resolve(documentID uuid.UUID, candidates []domain.FieldCandidate) []domain.ResolvedField {
	winners := make(map[string]domain.FieldCandidate)
	for _, c := range candidates {
		cur, ok := winners[c.FieldName]
		if !ok || Beats(c, cur) {
			winners[c.FieldName] = c
		}
	}

	now := time.Now().UTC()
	out := make([]domain.ResolvedField, 0, len(winners))
	for _, w := range winners {
		out = append(out, domain.ResolvedField{
			ID:            uuid.New(),
			DocumentID:    documentID,
			FieldName:     w.FieldName,
			Value:         w.Value,
			Confidence:    w.Confidence,
			Evidence:      w.Evidence,
			ResolvedBy:    resolvedBy(w.Tier),
			Tier:          w.Tier,
			LowConfidence: w.Confidence < r.cfg.PassThreshold,
			CreatedAt:     now,
		})
	}
	return out
}

// Beats reports whether candidate a should replace candidate b: strictly
// higher confidence, or equal confidence from a higher tier. A value already
// resolved is never displaced by a weaker or equal-strength lower-tier one.
func Beats(a, b domain.FieldCandidate) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return domain.TierRank(a.Tier) > domain.TierRank(b.Tier)
}

func resolvedBy(t domain.ExtractionTier) domain.ResolvedBy {
	if t == domain.TierLLM {
		return domain.ResolvedByLLM
	}
	return domain.ResolvedByDeterministic
}
