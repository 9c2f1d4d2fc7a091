package extract

import (
	"strings"

	"planproof/internal/domain"
	"planproof/internal/evidence"
)

// structuredStrategy assembles the site address from a labeled "Site location"
// section of an application form: property name, address lines, town, postcode
// collected from the blocks following the section header.
type structuredStrategy struct{}

func newStructuredStrategy() *structuredStrategy {
	return &structuredStrategy{}
}

func (s *structuredStrategy) ID() string                  { return "structured_site_location" }
func (s *structuredStrategy) Tier() domain.ExtractionTier { return domain.TierStructured }

// headerScanLimit bounds the search for the section header; sectionSpan is
// how many blocks after the header may contribute address components.
const (
	headerScanLimit = 200
	sectionSpan     = 20
)

func (s *structuredStrategy) Extract(idx *evidence.Index, docType domain.DocumentType) []domain.FieldCandidate {
	blocks := idx.Blocks()

	startIdx := -1
	n := len(blocks)
	if n > headerScanLimit {
		n = headerScanLimit
	}
	for i := 0; i < n; i++ {
		t := strings.ToLower(normalize(blocks[i].Content))
		for _, h := range siteLocationHeaders {
			if strings.Contains(t, h) {
				startIdx = i
				break
			}
		}
		if startIdx >= 0 {
			break
		}
	}
	if startIdx < 0 {
		return nil
	}

	var propertyName, line1, line2, townCity, postcode string

	end := startIdx + sectionSpan
	if end > len(blocks) {
		end = len(blocks)
	}
	for i := startIdx + 1; i < end; i++ {
		t := normalize(blocks[i].Content)
		tl := strings.ToLower(t)
		if t == "" || isNoise(t) || len(t) < 2 {
			continue
		}

		if strings.Contains(tl, "property name") && propertyName == "" {
			if v, ok := splitLabelValue(t); ok {
				propertyName = v
			}
		}
		if strings.Contains(tl, "address line 1") && line1 == "" {
			if v, ok := splitLabelValue(t); ok {
				line1 = v
			}
		}
		if strings.Contains(tl, "address line 2") && line2 == "" {
			if v, ok := splitLabelValue(t); ok {
				line2 = v
			}
		}
		if (strings.Contains(tl, "town") || strings.Contains(tl, "city")) && townCity == "" {
			if v, ok := splitLabelValue(t); ok {
				townCity = v
			}
		}
		if strings.Contains(tl, "postcode") && postcode == "" {
			if v, ok := splitLabelValue(t); ok {
				if m := postcodeRe.FindStringSubmatch(v); m != nil {
					postcode = strings.ToUpper(m[1])
				}
			}
		}

		// Forms often put the value in the block after the label.
		if i > startIdx+1 {
			prev := strings.ToLower(normalize(blocks[i-1].Content))
			switch {
			case strings.Contains(prev, "property name") && propertyName == "":
				propertyName = t
			case strings.Contains(prev, "address line 1") && line1 == "":
				line1 = t
			case strings.Contains(prev, "address line 2") && line2 == "":
				line2 = t
			case (strings.Contains(prev, "town") || strings.Contains(prev, "city")) && townCity == "":
				townCity = t
			case strings.Contains(prev, "postcode") && postcode == "":
				if m := postcodeRe.FindStringSubmatch(t); m != nil {
					postcode = strings.ToUpper(m[1])
				}
			}
		}
	}

	var parts []string
	for _, p := range []string{propertyName, line1, line2, townCity, postcode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return nil
	}

	header := blocks[startIdx]
	return []domain.FieldCandidate{{
		FieldName:  domain.FieldSiteAddress,
		Value:      strings.Join(parts, ", "),
		Confidence: 0.95,
		Evidence:   idx.Reference(header),
	}}
}
