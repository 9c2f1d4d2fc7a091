package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planproof/internal/domain"
)

const validCatalog = `
rules:
  - rule_id: R1
    description: Application form must state the site address
    required_fields: [site_address]
    applies_to: [application_form]
    severity: error
  - rule_id: R5
    description: Site notice must locate the site
    required_fields: [site_address, postcode]
    required_fields_any: true
    applies_to: [site_notice]
    severity: error
    keywords: [site, notice]
`

func TestParseCatalog(t *testing.T) {
	ruleSet, err := ParseCatalog([]byte(validCatalog))
	require.NoError(t, err)
	require.Len(t, ruleSet, 2)

	assert.Equal(t, "R1", ruleSet[0].RuleID)
	assert.False(t, ruleSet[0].RequiredFieldsAny)
	assert.Equal(t, domain.SeverityError, ruleSet[0].Severity)
	assert.Equal(t, []domain.DocumentType{domain.DocTypeApplicationForm}, ruleSet[0].AppliesTo)

	assert.True(t, ruleSet[1].RequiredFieldsAny)
	assert.Equal(t, []string{"site", "notice"}, ruleSet[1].Keywords)
}

func TestParseCatalogRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "rules: ["},
		{"empty catalog", "rules: []"},
		{"missing rule_id", `
rules:
  - required_fields: [site_address]
    applies_to: [application_form]
    severity: error
`},
		{"duplicate rule_id", `
rules:
  - rule_id: R1
    required_fields: [site_address]
    applies_to: [application_form]
    severity: error
  - rule_id: R1
    required_fields: [postcode]
    applies_to: [application_form]
    severity: error
`},
		{"no required fields", `
rules:
  - rule_id: R1
    required_fields: []
    applies_to: [application_form]
    severity: error
`},
		{"no applies_to", `
rules:
  - rule_id: R1
    required_fields: [site_address]
    severity: error
`},
		{"unknown document type", `
rules:
  - rule_id: R1
    required_fields: [site_address]
    applies_to: [blueprint]
    severity: error
`},
		{"invalid severity", `
rules:
  - rule_id: R1
    required_fields: [site_address]
    applies_to: [application_form]
    severity: critical
`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tc.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidRuleCatalog)
		})
	}
}
