package extract

import (
	"strings"

	"planproof/internal/domain"
	"planproof/internal/evidence"
)

// heuristicStrategy guesses fields on plan sheets where nothing is labeled:
// an address-shaped line for the site address, an all-caps sentence with
// proposal keywords for the proposed use. Lowest confidence tier.
type heuristicStrategy struct{}

func newHeuristicStrategy() *heuristicStrategy {
	return &heuristicStrategy{}
}

func (s *heuristicStrategy) ID() string                  { return "heuristic" }
func (s *heuristicStrategy) Tier() domain.ExtractionTier { return domain.TierHeuristic }

func (s *heuristicStrategy) Extract(idx *evidence.Index, docType domain.DocumentType) []domain.FieldCandidate {
	blocks := idx.Blocks()
	var out []domain.FieldCandidate

	if c, ok := s.siteAddress(idx, blocks); ok {
		out = append(out, c)
	}
	if c, ok := s.proposedUse(idx, blocks); ok {
		out = append(out, c)
	}
	return out
}

func (s *heuristicStrategy) siteAddress(idx *evidence.Index, blocks []domain.TextUnit) (domain.FieldCandidate, bool) {
	n := len(blocks)
	if n > 100 {
		n = 100
	}

	best := domain.FieldCandidate{}
	for i := 0; i < n; i++ {
		t := normalize(blocks[i].Content)
		if t == "" || isNoise(t) {
			continue
		}
		tl := strings.ToLower(t)
		if len(t) < 5 || strings.Contains(tl, "disclaimer") || strings.Contains(tl, "for information") {
			continue
		}
		// Grid references and bare coordinates look address-like but aren't.
		if gridRefRe.MatchString(t) || bareNumberRe.MatchString(t) {
			continue
		}

		if !addressLikeRe.MatchString(t) {
			continue
		}
		conf := 0.4
		if inSiteLocationSection(blocks, i) {
			conf = 0.7
		}
		if conf > best.Confidence {
			best = domain.FieldCandidate{
				FieldName:  domain.FieldSiteAddress,
				Value:      t,
				Confidence: conf,
				Evidence:   idx.Reference(blocks[i]),
			}
		}
	}
	return best, best.FieldName != ""
}

func (s *heuristicStrategy) proposedUse(idx *evidence.Index, blocks []domain.TextUnit) (domain.FieldCandidate, bool) {
	n := len(blocks)
	if n > 80 {
		n = 80
	}
	for _, b := range blocks[:n] {
		t := normalize(b.Content)
		if t == "" || isNoise(t) {
			continue
		}
		if !proposalHintsRe.MatchString(t) || len(t) < 20 {
			continue
		}
		if !looksLikeAllCaps(t) && !strings.HasSuffix(t, ".") {
			continue
		}
		conf := 0.5
		if len(t) >= 30 {
			conf = 0.7
		}
		return domain.FieldCandidate{
			FieldName:  domain.FieldProposedUse,
			Value:      t,
			Confidence: conf,
			Evidence:   idx.Reference(b),
		}, true
	}
	return domain.FieldCandidate{}, false
}
