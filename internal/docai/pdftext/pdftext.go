package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"planproof/internal/domain"
)

// Analyzer extracts text from digital (born-electronic) PDFs locally, without
// an OCR service. Scanned image-only PDFs yield few or no text blocks; those
// should go through the remote layout provider instead.
type Analyzer struct{}

// New creates a local PDF text analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

func (a *Analyzer) Analyze(ctx context.Context, docBytes []byte, contentType string) (*domain.Extraction, error) {
	if contentType != "application/pdf" {
		return nil, fmt.Errorf("%w: pdftext cannot analyze %s", domain.ErrExtractionUnavailable, contentType)
	}

	// pdfcpu validates structure first; a corrupt file fails here rather
	// than half-way through text extraction.
	if err := api.Validate(bytes.NewReader(docBytes), nil); err != nil {
		return nil, fmt.Errorf("%w: pdf validation failed: %v", domain.ErrExtractionUnavailable, err)
	}

	r, err := pdf.NewReader(bytes.NewReader(docBytes), int64(len(docBytes)))
	if err != nil {
		return nil, fmt.Errorf("%w: opening pdf: %v", domain.ErrExtractionUnavailable, err)
	}

	ex := &domain.Extraction{PageCount: r.NumPage()}
	for pageIndex := 1; pageIndex <= r.NumPage(); pageIndex++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", domain.ErrExtractionUnavailable, ctx.Err())
		default:
		}

		p := r.Page(pageIndex)
		if p.V.IsNull() {
			continue
		}

		rows, err := p.GetTextByRow()
		if err != nil {
			log.Printf("pdftext.Analyzer: page %d text extraction failed: %v", pageIndex, err)
			continue
		}
		for _, row := range rows {
			var sb strings.Builder
			for _, word := range row.Content {
				sb.WriteString(word.S)
			}
			content := strings.TrimSpace(sb.String())
			if content == "" {
				continue
			}
			ex.TextBlocks = append(ex.TextBlocks, domain.TextUnit{
				PageNumber: pageIndex,
				Content:    content,
			})
		}
	}

	if len(ex.TextBlocks) == 0 {
		return nil, fmt.Errorf("%w: no extractable text (scanned document?)", domain.ErrExtractionUnavailable)
	}
	return ex, nil
}
