package extract

import (
	"regexp"
	"strings"

	"planproof/internal/domain"
	"planproof/internal/evidence"
)

// labeledStrategy finds field values anchored to known labels: either
// "Label: value" in one block or the value spilling into the next blocks.
type labeledStrategy struct{}

func newLabeledStrategy() *labeledStrategy {
	return &labeledStrategy{}
}

func (s *labeledStrategy) ID() string                  { return "labeled" }
func (s *labeledStrategy) Tier() domain.ExtractionTier { return domain.TierLabeled }

var labelPatterns = map[string][]*regexp.Regexp{
	domain.FieldSiteAddress: compileAll(
		`site address`, `address of site`, `site location`),
	domain.FieldProposalDescription: compileAll(
		`proposal`, `description of development`, `proposed development`, `what are you proposing`),
	domain.FieldApplicantName: compileAll(
		`applicant name`, `name of applicant`, `first name`, `surname`),
	domain.FieldAgentName: compileAll(
		`agent name`, `name of agent`),
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

// labeledConfidence is the default for a value sitting under a known label.
const labeledConfidence = 0.7

func (s *labeledStrategy) Extract(idx *evidence.Index, docType domain.DocumentType) []domain.FieldCandidate {
	blocks := idx.Blocks()
	var out []domain.FieldCandidate

	// Prior-approval forms state the proposed use in the declaration line.
	if c, ok := s.priorApprovalUse(idx, blocks); ok {
		out = append(out, c)
	}

	for field, pats := range labelPatterns {
		val, src, ok := findByLabel(blocks, pats)
		if !ok {
			continue
		}
		out = append(out, domain.FieldCandidate{
			FieldName:  field,
			Value:      val,
			Confidence: labeledConfidence,
			Evidence:   idx.Reference(src),
		})
	}
	return out
}

var priorApprovalSplitRe = regexp.MustCompile(`:|for`)

func (s *labeledStrategy) priorApprovalUse(idx *evidence.Index, blocks []domain.TextUnit) (domain.FieldCandidate, bool) {
	n := len(blocks)
	if n > 100 {
		n = 100
	}
	for _, b := range blocks[:n] {
		t := normalize(b.Content)
		tl := strings.ToLower(t)
		if !strings.Contains(tl, "i/we hereby apply for prior approval") &&
			!strings.Contains(tl, "prior approval for") {
			continue
		}
		parts := priorApprovalSplitRe.Split(t, 2)
		if len(parts) != 2 {
			continue
		}
		v := normalize(parts[1])
		if len(v) <= 10 {
			continue
		}
		return domain.FieldCandidate{
			FieldName:  domain.FieldProposedUse,
			Value:      v,
			Confidence: 0.9,
			Evidence:   idx.Reference(b),
		}, true
	}
	return domain.FieldCandidate{}, false
}

// findByLabel returns the value for the first block matching any label
// pattern: either after the colon, or assembled from the next few blocks.
func findByLabel(blocks []domain.TextUnit, pats []*regexp.Regexp) (string, domain.TextUnit, bool) {
	for i, b := range blocks {
		t := normalize(b.Content)
		tl := strings.ToLower(t)
		matched := false
		for _, p := range pats {
			if p.MatchString(tl) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}

		if v, ok := splitLabelValue(t); ok {
			return v, b, true
		}

		var nxt []string
		for j := 1; j <= 3; j++ {
			if i+j >= len(blocks) {
				break
			}
			if n := normalize(blocks[i+j].Content); n != "" {
				nxt = append(nxt, n)
			}
			if len(strings.Join(nxt, " ")) > 20 {
				break
			}
		}
		if len(nxt) > 0 {
			return normalize(strings.Join(nxt, " ")), b, true
		}
	}
	return "", domain.TextUnit{}, false
}
