package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"planproof/internal/port"
	"planproof/mocks"
)

func testInput() port.ResolveInput {
	return port.ResolveInput{
		DocumentType:  "application_form",
		MissingFields: []string{"proposed_use"},
	}
}

func TestFallbackUsesFirstHealthyResolver(t *testing.T) {
	primary := new(mocks.MockFieldResolver)
	secondary := new(mocks.MockFieldResolver)
	primary.On("Resolve", mock.Anything, mock.Anything).
		Return(&port.ResolveOutput{ModelUsed: "primary"}, nil)

	f := NewFallbackResolver([]port.FieldResolver{primary, secondary}, []string{"primary", "secondary"})
	out, err := f.Resolve(context.Background(), testInput())

	require.NoError(t, err)
	assert.Equal(t, "primary", out.ModelUsed)
	secondary.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestFallbackMovesToSecondaryOnError(t *testing.T) {
	primary := new(mocks.MockFieldResolver)
	secondary := new(mocks.MockFieldResolver)
	primary.On("Resolve", mock.Anything, mock.Anything).
		Return(nil, errors.New("boom"))
	secondary.On("Resolve", mock.Anything, mock.Anything).
		Return(&port.ResolveOutput{ModelUsed: "secondary"}, nil)

	f := NewFallbackResolver([]port.FieldResolver{primary, secondary}, []string{"primary", "secondary"})
	out, err := f.Resolve(context.Background(), testInput())

	require.NoError(t, err)
	assert.Equal(t, "secondary", out.ModelUsed)
}

func TestFallbackOpensCircuitOnRateLimit(t *testing.T) {
	primary := new(mocks.MockFieldResolver)
	secondary := new(mocks.MockFieldResolver)
	primary.On("Resolve", mock.Anything, mock.Anything).
		Return(nil, NewRateLimitError("primary", errors.New("429"), 60)).Once()
	secondary.On("Resolve", mock.Anything, mock.Anything).
		Return(&port.ResolveOutput{ModelUsed: "secondary"}, nil).Twice()

	f := NewFallbackResolver([]port.FieldResolver{primary, secondary}, []string{"primary", "secondary"})

	// First call rate-limits the primary and falls through.
	out, err := f.Resolve(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, "secondary", out.ModelUsed)

	// Second call skips the primary entirely while its circuit is open.
	out, err = f.Resolve(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, "secondary", out.ModelUsed)
	primary.AssertNumberOfCalls(t, "Resolve", 1)
}

func TestFallbackAllRateLimited(t *testing.T) {
	primary := new(mocks.MockFieldResolver)
	primary.On("Resolve", mock.Anything, mock.Anything).
		Return(nil, NewRateLimitError("primary", errors.New("429"), 30))

	f := NewFallbackResolver([]port.FieldResolver{primary}, []string{"primary"})
	_, err := f.Resolve(context.Background(), testInput())

	var rlErr *RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, "all", rlErr.Provider)
}

func TestFallbackAllFailed(t *testing.T) {
	primary := new(mocks.MockFieldResolver)
	secondary := new(mocks.MockFieldResolver)
	primary.On("Resolve", mock.Anything, mock.Anything).Return(nil, errors.New("bad gateway"))
	secondary.On("Resolve", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	f := NewFallbackResolver([]port.FieldResolver{primary, secondary}, []string{"primary", "secondary"})
	_, err := f.Resolve(context.Background(), testInput())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "all resolvers failed")
}
