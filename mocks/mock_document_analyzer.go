package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"planproof/internal/domain"
)

// MockDocumentAnalyzer is a mock implementation of port.DocumentAnalyzer.
type MockDocumentAnalyzer struct {
	mock.Mock
}

func (m *MockDocumentAnalyzer) Analyze(ctx context.Context, docBytes []byte, contentType string) (*domain.Extraction, error) {
	args := m.Called(ctx, docBytes, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Extraction), args.Error(1)
}
