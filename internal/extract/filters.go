package extract

import (
	"regexp"
	"strings"

	"planproof/internal/domain"
)

var (
	postcodeRe = regexp.MustCompile(`(?i)\b([A-Z]{1,2}\d[A-Z\d]?\s*\d[A-Z]{2})\b`)
	emailRe    = regexp.MustCompile(`(?i)\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`)
	phoneRe    = regexp.MustCompile(`\b(\+?\d[\d\s().-]{8,}\d)\b`)
	apprefRe   = regexp.MustCompile(`(?i)\b(PP-\d{6,}|20\d{6,}[A-Z]{1,3})\b`)
	dateLikeRe = regexp.MustCompile(`\b\d{1,2}[./-]\d{1,2}[./-]\d{2,4}\b`)

	addressLikeRe   = regexp.MustCompile(`^\s*\d+\s+[A-Z0-9'’\- ]{4,}$`)
	proposalHintsRe = regexp.MustCompile(`(?i)\b(PROPOS|DEVELOPMENT|CONVERSION|USE|HMO|EXTENSION|LOFT|DORMER)\b`)

	gridRefRe    = regexp.MustCompile(`^\s*\d+\s+\d+\s*$`)
	bareNumberRe = regexp.MustCompile(`^\s*\d+\s*$`)

	wsRe = regexp.MustCompile(`\s+`)
)

// noiseMarkers flag plan-sheet boilerplate that never carries field values.
var noiseMarkers = []string{
	"copyright", "notes:", "scale", "printed on", "os 1000",
	"disclaimer", "this drawing", "for information only",
}

// councilIndicators flag council contact details that must never be mistaken
// for applicant contact details or the site postcode.
var councilIndicators = []string{
	"birmingham.gov.uk", "planning.registration", "council", "local authority",
	"planning department", "planning@", "0121 464", "po box",
}

// siteLocationHeaders mark the start of a structured site address section.
var siteLocationHeaders = []string{
	"site location", "site address", "address of site",
	"location of site", "property address",
}

func normalize(s string) string {
	return strings.TrimSpace(wsRe.ReplaceAllString(s, " "))
}

func isNoise(s string) bool {
	sl := strings.ToLower(s)
	for _, k := range noiseMarkers {
		if strings.Contains(sl, k) {
			return true
		}
	}
	return false
}

func isCouncilContact(s string) bool {
	sl := strings.ToLower(s)
	for _, k := range councilIndicators {
		if strings.Contains(sl, k) {
			return true
		}
	}
	return false
}

// sectionLookback is how many preceding blocks are scanned for a site
// location header when deciding whether a block sits inside that section.
const sectionLookback = 10

func inSiteLocationSection(blocks []domain.TextUnit, i int) bool {
	start := i - sectionLookback
	if start < 0 {
		start = 0
	}
	for j := start; j < i; j++ {
		t := strings.ToLower(normalize(blocks[j].Content))
		for _, h := range siteLocationHeaders {
			if strings.Contains(t, h) {
				return true
			}
		}
	}
	return false
}

func looksLikeAllCaps(s string) bool {
	letters := 0
	upper := 0
	for _, r := range s {
		if 'a' <= r && r <= 'z' {
			letters++
		} else if 'A' <= r && r <= 'Z' {
			letters++
			upper++
		}
	}
	if letters < 8 {
		return false
	}
	return float64(upper)/float64(letters) > 0.8
}

// looksLikePhone rejects digit runs that are actually dates.
func looksLikePhone(s string) bool {
	return !dateLikeRe.MatchString(s)
}

// splitLabelValue splits "Label: value" and returns the trimmed value.
func splitLabelValue(s string) (string, bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return "", false
	}
	v := normalize(parts[1])
	return v, v != ""
}
