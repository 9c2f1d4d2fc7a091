package extract

import (
	"regexp"
	"strings"

	"planproof/internal/config"
	"planproof/internal/domain"
	"planproof/internal/evidence"
)

// patternStrategy extracts values matched by high-precision regexes:
// application references, postcodes, emails, phones, and the site-notice
// "demolition of ..." address form.
type patternStrategy struct {
	cfg *config.ExtractionConfig
}

func newPatternStrategy(cfg *config.ExtractionConfig) *patternStrategy {
	return &patternStrategy{cfg: cfg}
}

func (s *patternStrategy) ID() string                  { return "pattern" }
func (s *patternStrategy) Tier() domain.ExtractionTier { return domain.TierPattern }

// patternScanLimit bounds regex scans over large documents.
const patternScanLimit = 400

func (s *patternStrategy) Extract(idx *evidence.Index, docType domain.DocumentType) []domain.FieldCandidate {
	blocks := idx.Blocks()
	var out []domain.FieldCandidate

	if c, ok := s.applicationRef(idx, blocks); ok {
		out = append(out, c)
	}
	if c, ok := s.demolitionAddress(idx, blocks); ok {
		out = append(out, c)
	}
	if c, ok := s.postcode(idx, blocks); ok {
		out = append(out, c)
	}
	out = append(out, s.contacts(idx, blocks)...)
	return out
}

func (s *patternStrategy) applicationRef(idx *evidence.Index, blocks []domain.TextUnit) (domain.FieldCandidate, bool) {
	n := len(blocks)
	if n > patternScanLimit {
		n = patternScanLimit
	}
	for _, b := range blocks[:n] {
		m := apprefRe.FindStringSubmatch(b.Content)
		if m == nil {
			continue
		}
		ref := strings.ToUpper(m[1])
		conf := 0.8
		if strings.HasPrefix(ref, "PP-") {
			conf = 0.9
		}
		return domain.FieldCandidate{
			FieldName:  domain.FieldApplicationRef,
			Value:      ref,
			Confidence: conf,
			Evidence:   idx.Reference(b),
		}, true
	}
	return domain.FieldCandidate{}, false
}

var demolitionRe = regexp.MustCompile(`(?i)demolition\s+of\s+(.+?)\s+([A-Z]{1,2}\d[A-Z\d]?\s*\d[A-Z]{2})`)

// demolitionAddress pulls the site address from a site notice's
// "demolition of <address> <postcode>" phrasing.
func (s *patternStrategy) demolitionAddress(idx *evidence.Index, blocks []domain.TextUnit) (domain.FieldCandidate, bool) {
	n := len(blocks)
	if n > 100 {
		n = 100
	}
	for _, b := range blocks[:n] {
		t := normalize(b.Content)
		if !strings.Contains(strings.ToLower(t), "demolition") {
			continue
		}
		m := demolitionRe.FindStringSubmatch(t)
		if m == nil {
			continue
		}
		addr := strings.TrimRight(strings.TrimSpace(m[1]), ",")
		full := addr + ", " + strings.ToUpper(m[2])
		if len(full) <= 10 {
			continue
		}
		return domain.FieldCandidate{
			FieldName:  domain.FieldSiteAddress,
			Value:      full,
			Confidence: 0.85,
			Evidence:   idx.Reference(b),
		}, true
	}
	return domain.FieldCandidate{}, false
}

// postcode collects every postcode match, scores each by context, and keeps
// the best. Council contact postcodes (PO boxes, council addresses) are
// floored so they lose to any site-context match.
func (s *patternStrategy) postcode(idx *evidence.Index, blocks []domain.TextUnit) (domain.FieldCandidate, bool) {
	n := len(blocks)
	if n > patternScanLimit {
		n = patternScanLimit
	}

	best := domain.FieldCandidate{}
	for i := 0; i < n; i++ {
		b := blocks[i]
		m := postcodeRe.FindStringSubmatch(b.Content)
		if m == nil {
			continue
		}
		pc := strings.ToUpper(m[1])
		tl := strings.ToLower(b.Content)

		conf := 0.5
		switch {
		case inSiteLocationSection(blocks, i) || strings.Contains(tl, "postcode"):
			conf = 0.9
		case strings.Contains(tl, "site") || strings.Contains(tl, "address"):
			conf = 0.7
		}
		if isCouncilContact(b.Content) {
			conf = s.cfg.ContactFloor
		}

		if conf > best.Confidence {
			best = domain.FieldCandidate{
				FieldName:  domain.FieldPostcode,
				Value:      pc,
				Confidence: conf,
				Evidence:   idx.Reference(b),
			}
		}
	}
	return best, best.FieldName != ""
}

// contacts extracts applicant email and phone, skipping council contact
// blocks entirely and boosting confidence when "applicant" appears nearby.
func (s *patternStrategy) contacts(idx *evidence.Index, blocks []domain.TextUnit) []domain.FieldCandidate {
	n := len(blocks)
	if n > patternScanLimit {
		n = patternScanLimit
	}

	var out []domain.FieldCandidate
	foundEmail, foundPhone := false, false
	for i := 0; i < n && (!foundEmail || !foundPhone); i++ {
		b := blocks[i]
		if isCouncilContact(b.Content) {
			continue
		}

		if !foundEmail {
			if m := emailRe.FindString(b.Content); m != "" {
				out = append(out, domain.FieldCandidate{
					FieldName:  domain.FieldApplicantEmail,
					Value:      m,
					Confidence: contactConfidence(blocks, i),
					Evidence:   idx.Reference(b),
				})
				foundEmail = true
			}
		}
		if !foundPhone {
			if m := phoneRe.FindStringSubmatch(b.Content); m != nil {
				v := normalize(m[1])
				if looksLikePhone(v) && len(v) >= 9 {
					out = append(out, domain.FieldCandidate{
						FieldName:  domain.FieldApplicantPhone,
						Value:      v,
						Confidence: contactConfidence(blocks, i),
						Evidence:   idx.Reference(b),
					})
					foundPhone = true
				}
			}
		}
	}
	return out
}

func contactConfidence(blocks []domain.TextUnit, i int) float64 {
	start := i - 2
	if start < 0 {
		start = 0
	}
	end := i + 3
	if end > len(blocks) {
		end = len(blocks)
	}
	var sb strings.Builder
	for _, b := range blocks[start:end] {
		sb.WriteString(strings.ToLower(normalize(b.Content)))
		sb.WriteString(" ")
	}
	if strings.Contains(sb.String(), "applicant") {
		return 0.8
	}
	return 0.5
}
