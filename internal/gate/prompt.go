package gate

import (
	"regexp"
	"strings"

	"planproof/internal/domain"
	"planproof/internal/evidence"
)

// maxEvidenceUnits bounds how many text units the resolver may see. The
// prompt carries only plausibly relevant units, never the whole document.
const maxEvidenceUnits = 40

// fieldHints maps each field to a pattern flagging units worth sending.
var fieldHints = map[string]*regexp.Regexp{
	domain.FieldApplicationRef:      regexp.MustCompile(`(?i)reference|\bPP-\d|application`),
	domain.FieldSiteAddress:         regexp.MustCompile(`(?i)address|site location|street|road|lane`),
	domain.FieldPostcode:            regexp.MustCompile(`(?i)postcode|\b[A-Z]{1,2}\d[A-Z\d]?\s*\d[A-Z]{2}\b`),
	domain.FieldProposedUse:         regexp.MustCompile(`(?i)propos|development|use class|conversion`),
	domain.FieldProposalDescription: regexp.MustCompile(`(?i)propos|description|development`),
	domain.FieldApplicantName:       regexp.MustCompile(`(?i)applicant|name`),
	domain.FieldAgentName:           regexp.MustCompile(`(?i)agent`),
	domain.FieldApplicantEmail:      regexp.MustCompile(`(?i)email|@`),
	domain.FieldApplicantPhone:      regexp.MustCompile(`(?i)phone|telephone|mobile`),
}

// SelectEvidence picks the text units plausibly relevant to the missing
// fields: headings always qualify, other units must match a field hint.
// Document order is preserved and the result is capped.
func SelectEvidence(idx *evidence.Index, missingFields []string) []domain.TextUnit {
	var hints []*regexp.Regexp
	for _, f := range missingFields {
		if h, ok := fieldHints[f]; ok {
			hints = append(hints, h)
		}
	}

	var out []domain.TextUnit
	for _, u := range idx.Units() {
		if len(out) >= maxEvidenceUnits {
			break
		}
		if strings.TrimSpace(u.Content) == "" {
			continue
		}
		if u.Role == "title" || u.Role == "sectionHeading" {
			out = append(out, u)
			continue
		}
		for _, h := range hints {
			if h.MatchString(u.Content) {
				out = append(out, u)
				break
			}
		}
	}
	return out
}
