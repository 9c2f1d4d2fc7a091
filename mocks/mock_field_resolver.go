package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"planproof/internal/port"
)

// MockFieldResolver is a mock implementation of port.FieldResolver.
type MockFieldResolver struct {
	mock.Mock
}

func (m *MockFieldResolver) Resolve(ctx context.Context, input port.ResolveInput) (*port.ResolveOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.ResolveOutput), args.Error(1)
}
