package rules

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"planproof/internal/domain"
)

type catalogFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	RuleID            string   `yaml:"rule_id"`
	Description       string   `yaml:"description"`
	RequiredFields    []string `yaml:"required_fields"`
	RequiredFieldsAny bool     `yaml:"required_fields_any"`
	AppliesTo         []string `yaml:"applies_to"`
	Severity          string   `yaml:"severity"`
	Keywords          []string `yaml:"keywords"`
}

// LoadCatalog reads and validates a YAML rule catalog. Malformed rules are
// rejected here, not at evaluation time.
func LoadCatalog(path string) ([]domain.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses and validates catalog YAML bytes.
func ParseCatalog(data []byte) ([]domain.Rule, error) {
	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRuleCatalog, err)
	}
	if len(cf.Rules) == 0 {
		return nil, fmt.Errorf("%w: catalog contains no rules", domain.ErrInvalidRuleCatalog)
	}

	seen := make(map[string]bool)
	out := make([]domain.Rule, 0, len(cf.Rules))
	for i, rs := range cf.Rules {
		if rs.RuleID == "" {
			return nil, fmt.Errorf("%w: rule %d has no rule_id", domain.ErrInvalidRuleCatalog, i)
		}
		if seen[rs.RuleID] {
			return nil, fmt.Errorf("%w: duplicate rule_id %s", domain.ErrInvalidRuleCatalog, rs.RuleID)
		}
		seen[rs.RuleID] = true

		if len(rs.RequiredFields) == 0 {
			return nil, fmt.Errorf("%w: rule %s has no required_fields", domain.ErrInvalidRuleCatalog, rs.RuleID)
		}
		if len(rs.AppliesTo) == 0 {
			return nil, fmt.Errorf("%w: rule %s has no applies_to", domain.ErrInvalidRuleCatalog, rs.RuleID)
		}

		var appliesTo []domain.DocumentType
		for _, at := range rs.AppliesTo {
			dt := domain.DocumentType(at)
			if !domain.KnownDocumentTypes[dt] {
				return nil, fmt.Errorf("%w: rule %s applies_to unknown document type %q", domain.ErrInvalidRuleCatalog, rs.RuleID, at)
			}
			appliesTo = append(appliesTo, dt)
		}

		sev := domain.RuleSeverity(rs.Severity)
		if sev != domain.SeverityError && sev != domain.SeverityWarning {
			return nil, fmt.Errorf("%w: rule %s has invalid severity %q", domain.ErrInvalidRuleCatalog, rs.RuleID, rs.Severity)
		}

		out = append(out, domain.Rule{
			RuleID:            rs.RuleID,
			Description:       rs.Description,
			RequiredFields:    rs.RequiredFields,
			RequiredFieldsAny: rs.RequiredFieldsAny,
			AppliesTo:         appliesTo,
			Severity:          sev,
			Keywords:          rs.Keywords,
		})
	}
	return out, nil
}
