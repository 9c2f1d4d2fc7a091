package report

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"planproof/internal/domain"
)

func TestWriteWorkbook(t *testing.T) {
	run := &domain.Run{
		ID:             uuid.New(),
		ApplicationRef: "PP-14469287",
		State:          domain.RunStateCompleted,
		TotalDocuments: 1,
		Processed:      1,
		LLMCalls:       1,
	}
	results := []domain.DocumentResult{{
		Document: &domain.Document{
			FileName:     "application.pdf",
			DocumentType: domain.DocTypeApplicationForm,
		},
		Fields: []domain.ResolvedField{{
			FieldName:  domain.FieldPostcode,
			Value:      "B8 1BG",
			Confidence: 0.9,
			ResolvedBy: domain.ResolvedByDeterministic,
			Tier:       domain.TierPattern,
			Evidence:   domain.EvidenceReference{UnitID: "p1b2", Page: 1, Snippet: "Postcode: B8 1BG"},
		}},
		Findings: []domain.Finding{{
			RuleID:   "R1",
			Severity: domain.SeverityError,
			Status:   domain.FindingStatusPass,
			Message:  "application form must state the postcode",
		}},
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, run, results))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.ElementsMatch(t, []string{summarySheet, findingsSheet, fieldsSheet}, f.GetSheetList())

	ref, err := f.GetCellValue(summarySheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "PP-14469287", ref)

	rule, err := f.GetCellValue(findingsSheet, "C2")
	require.NoError(t, err)
	assert.Equal(t, "R1", rule)

	value, err := f.GetCellValue(fieldsSheet, "C2")
	require.NoError(t, err)
	assert.Equal(t, "B8 1BG", value)
}
