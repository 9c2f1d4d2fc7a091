package classify

import (
	"regexp"
	"strings"

	"planproof/internal/domain"
)

// maxBlocks bounds how much of the document the classifier reads.
const maxBlocks = 200

type hint struct {
	pattern string
	re      *regexp.Regexp
}

func mustHints(patterns ...string) []hint {
	out := make([]hint, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, hint{pattern: p, re: regexp.MustCompile(p)})
	}
	return out
}

// typeHints maps each document type to the phrases that indicate it. Patterns
// are matched against lowercased text.
var typeHints = map[domain.DocumentType][]hint{
	domain.DocTypeApplicationForm: mustHints(
		`application form`,
		`planning application`,
		`town and country planning`,
		`planning portal reference`,
		`application to determine if prior approval`,
		`i/we hereby apply for prior approval`,
		`prior approval`,
	),
	domain.DocTypeSiteNotice: mustHints(
		`statement of display of a site notice`,
		`site notice of application`,
		`site notice`,
		`notice of application`,
	),
	domain.DocTypeSitePlan: mustHints(
		`location\s*&\s*block\s*plan`,
		`location plan`,
		`block plan`,
		`\b1:1250\b`,
		`\b1:500\b`,
		`\b1:2500\b`,
	),
	domain.DocTypeDrawing: mustHints(
		`existing`,
		`proposed`,
		`elevation`,
		`floor plan`,
		`section`,
	),
	domain.DocTypeDesignStatement: mustHints(
		`design and access statement`,
		`design\s*&\s*access`,
	),
	domain.DocTypeHeritage: mustHints(
		`heritage statement`,
		`listed building`,
		`conservation area`,
	),
}

// priorityOrder lists specific types before generic ones, so a site notice
// that also mentions "proposed" never classifies as a drawing. Types earlier
// in the order win score ties.
var priorityOrder = []domain.DocumentType{
	domain.DocTypeApplicationForm,
	domain.DocTypeSiteNotice,
	domain.DocTypeSitePlan,
	domain.DocTypeDesignStatement,
	domain.DocTypeHeritage,
	domain.DocTypeDrawing,
}

// Result is the outcome of classifying one document.
type Result struct {
	Type           domain.DocumentType
	MatchedPattern string
	Score          int
	// Ambiguous is set when a lower-priority type matched as many hints as
	// the winner. The winner still stands; callers may log it.
	Ambiguous bool
}

// Classifier assigns a document type from extracted text content.
type Classifier struct{}

// New creates a document classifier.
func New() *Classifier {
	return &Classifier{}
}

// Classify scores each document type by how many of its hint phrases appear
// in the document's leading text blocks. The highest score wins; no match at
// all yields unknown.
func (c *Classifier) Classify(blocks []domain.TextUnit) Result {
	n := len(blocks)
	if n > maxBlocks {
		n = maxBlocks
	}
	var sb strings.Builder
	for _, b := range blocks[:n] {
		sb.WriteString(normalize(b.Content))
		sb.WriteString(" ")
	}
	text := strings.ToLower(sb.String())

	best := Result{Type: domain.DocTypeUnknown}
	for _, dtype := range priorityOrder {
		score := 0
		matched := ""
		for _, h := range typeHints[dtype] {
			if h.re.MatchString(text) {
				score++
				if matched == "" {
					matched = h.pattern
				}
			}
		}
		if score > best.Score {
			best = Result{Type: dtype, MatchedPattern: matched, Score: score}
		} else if score > 0 && score == best.Score {
			best.Ambiguous = true
		}
	}
	return best
}

var wsRe = regexp.MustCompile(`\s+`)

func normalize(s string) string {
	return strings.TrimSpace(wsRe.ReplaceAllString(s, " "))
}
