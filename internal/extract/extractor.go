package extract

import (
	"log"

	"planproof/internal/config"
	"planproof/internal/domain"
	"planproof/internal/evidence"
)

// Strategy proposes field candidates from an indexed document. Strategies
// never see each other's output; arbitration happens in the resolver.
type Strategy interface {
	ID() string
	Tier() domain.ExtractionTier
	Extract(idx *evidence.Index, docType domain.DocumentType) []domain.FieldCandidate
}

// Engine runs every registered strategy over a document and normalizes the
// resulting candidates: confidence clamped to the strategy's tier ceiling,
// candidates below the acceptance threshold dropped.
type Engine struct {
	cfg        *config.ExtractionConfig
	strategies []Strategy
}

// NewEngine creates an extraction engine with the default strategy set.
func NewEngine(cfg *config.ExtractionConfig) *Engine {
	return &Engine{
		cfg: cfg,
		strategies: []Strategy{
			newStructuredStrategy(),
			newLabeledStrategy(),
			newPatternStrategy(cfg),
			newHeuristicStrategy(),
		},
	}
}

// Extract runs all strategies and returns the accepted candidates.
func (e *Engine) Extract(idx *evidence.Index, docType domain.DocumentType) []domain.FieldCandidate {
	var out []domain.FieldCandidate
	for _, s := range e.strategies {
		ceiling := e.cfg.TierCeiling(string(s.Tier()))
		for _, c := range s.Extract(idx, docType) {
			if c.Confidence > ceiling {
				c.Confidence = ceiling
			}
			if c.Confidence < e.cfg.MinAcceptance {
				log.Printf("extract.Engine: dropping %s candidate for %s (confidence %.2f below acceptance)",
					s.ID(), c.FieldName, c.Confidence)
				continue
			}
			c.ExtractorID = s.ID()
			c.Tier = s.Tier()
			c.SourceDocType = docType
			out = append(out, c)
		}
	}
	return out
}
