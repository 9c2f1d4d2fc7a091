package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"planproof/internal/domain"
	"planproof/internal/port"
)

type ruleRepo struct {
	db *sqlx.DB
}

// NewRuleRepo creates a new PostgreSQL-backed RuleRepository.
func NewRuleRepo(db *sqlx.DB) port.RuleRepository {
	return &ruleRepo{db: db}
}

// ruleRow is the table shape; list columns are JSONB.
type ruleRow struct {
	RuleID            string              `db:"rule_id"`
	Description       string              `db:"description"`
	RequiredFields    []byte              `db:"required_fields"`
	RequiredFieldsAny bool                `db:"required_fields_any"`
	AppliesTo         []byte              `db:"applies_to"`
	Severity          domain.RuleSeverity `db:"severity"`
	Keywords          []byte              `db:"keywords"`
	UpdatedAt         time.Time           `db:"updated_at"`
}

func (row *ruleRow) toDomain() (domain.Rule, error) {
	r := domain.Rule{
		RuleID:            row.RuleID,
		Description:       row.Description,
		RequiredFieldsAny: row.RequiredFieldsAny,
		Severity:          row.Severity,
	}
	if err := json.Unmarshal(row.RequiredFields, &r.RequiredFields); err != nil {
		return r, fmt.Errorf("unmarshaling required_fields for %s: %w", row.RuleID, err)
	}
	if err := json.Unmarshal(row.AppliesTo, &r.AppliesTo); err != nil {
		return r, fmt.Errorf("unmarshaling applies_to for %s: %w", row.RuleID, err)
	}
	if len(row.Keywords) > 0 {
		if err := json.Unmarshal(row.Keywords, &r.Keywords); err != nil {
			return r, fmt.Errorf("unmarshaling keywords for %s: %w", row.RuleID, err)
		}
	}
	return r, nil
}

// UpsertBatch replaces each rule's definition by rule_id, so reloading the
// catalog on startup converges the table to the file.
func (r *ruleRepo) UpsertBatch(ctx context.Context, rules []domain.Rule) error {
	if len(rules) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ruleRepo.UpsertBatch begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for i := range rules {
		rule := &rules[i]
		required, err := json.Marshal(rule.RequiredFields)
		if err != nil {
			return fmt.Errorf("ruleRepo.UpsertBatch marshal required_fields: %w", err)
		}
		appliesTo, err := json.Marshal(rule.AppliesTo)
		if err != nil {
			return fmt.Errorf("ruleRepo.UpsertBatch marshal applies_to: %w", err)
		}
		keywords, err := json.Marshal(rule.Keywords)
		if err != nil {
			return fmt.Errorf("ruleRepo.UpsertBatch marshal keywords: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO rules (
				rule_id, description, required_fields, required_fields_any,
				applies_to, severity, keywords, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (rule_id) DO UPDATE SET
				description = EXCLUDED.description,
				required_fields = EXCLUDED.required_fields,
				required_fields_any = EXCLUDED.required_fields_any,
				applies_to = EXCLUDED.applies_to,
				severity = EXCLUDED.severity,
				keywords = EXCLUDED.keywords,
				updated_at = EXCLUDED.updated_at`,
			rule.RuleID, rule.Description, required, rule.RequiredFieldsAny,
			appliesTo, rule.Severity, keywords, now)
		if err != nil {
			return fmt.Errorf("ruleRepo.UpsertBatch insert %s: %w", rule.RuleID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ruleRepo.UpsertBatch commit: %w", err)
	}
	return nil
}

func (r *ruleRepo) ListAll(ctx context.Context) ([]domain.Rule, error) {
	var rows []ruleRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT * FROM rules ORDER BY rule_id ASC")
	if err != nil {
		return nil, fmt.Errorf("ruleRepo.ListAll: %w", err)
	}
	return rowsToRules(rows)
}

func (r *ruleRepo) ListByDocumentType(ctx context.Context, docType domain.DocumentType) ([]domain.Rule, error) {
	var rows []ruleRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM rules WHERE applies_to @> $1 ORDER BY rule_id ASC`,
		fmt.Sprintf(`["%s"]`, docType))
	if err != nil {
		return nil, fmt.Errorf("ruleRepo.ListByDocumentType: %w", err)
	}
	return rowsToRules(rows)
}

func rowsToRules(rows []ruleRow) ([]domain.Rule, error) {
	out := make([]domain.Rule, 0, len(rows))
	for i := range rows {
		rule, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, nil
}
