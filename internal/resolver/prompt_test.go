package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planproof/internal/domain"
	"planproof/internal/port"
)

func TestBuildResolutionPrompt(t *testing.T) {
	prompt := BuildResolutionPrompt(port.ResolveInput{
		DocumentType:  domain.DocTypeApplicationForm,
		MissingFields: []string{"proposed_use", "postcode"},
		EvidenceUnits: []domain.TextUnit{
			{ID: "p1b3", PageNumber: 1, Content: "Proposed change of use to HMO"},
			{ID: "p2b0", PageNumber: 2, Content: "Postcode: B8 1BG"},
		},
	})

	assert.Contains(t, prompt, "application_form")
	assert.Contains(t, prompt, "- proposed_use")
	assert.Contains(t, prompt, "- postcode")
	assert.Contains(t, prompt, "[p1b3] (page 1) Proposed change of use to HMO")
	assert.Contains(t, prompt, "[p2b0] (page 2) Postcode: B8 1BG")
	assert.Contains(t, prompt, "cited_unit_id")
}

func TestParseResolutionJSON(t *testing.T) {
	raw := `{"resolutions":[{"field_name":"proposed_use","value":"Change of use to HMO","cited_unit_id":"p1b3","confidence":0.8}]}`

	res, err := ParseResolutionJSON(raw)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "proposed_use", res[0].FieldName)
	assert.Equal(t, "p1b3", res[0].CitedUnitID)
	assert.InDelta(t, 0.8, res[0].Confidence, 0.001)
}

func TestParseResolutionJSONStripsFences(t *testing.T) {
	raw := "```json\n{\"resolutions\":[{\"field_name\":\"postcode\",\"value\":\"B8 1BG\",\"cited_unit_id\":\"p2b0\",\"confidence\":0.9}]}\n```"

	res, err := ParseResolutionJSON(raw)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "B8 1BG", res[0].Value)
}

func TestParseResolutionJSONMalformed(t *testing.T) {
	_, err := ParseResolutionJSON("I could not find the fields, sorry.")
	assert.Error(t, err)
}
