package port

import (
	"context"

	"planproof/internal/domain"
)

// DocumentAnalyzer abstracts the upstream OCR / layout analysis provider.
// A failure means the document cannot be analyzed right now; callers record
// it and continue with the rest of the batch.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, docBytes []byte, contentType string) (*domain.Extraction, error)
}
