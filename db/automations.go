package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/samber/mo"

	"autoreply/models"
)

// PostgresAutomationsRepository is the read-only view over automation rules.
// Rule definitions are owned and written by the dashboard side of the
// product; the pipeline only ever lists and fetches them.
type PostgresAutomationsRepository struct {
	db     *sqlx.DB
	schema string
}

func NewPostgresAutomationsRepository(db *sqlx.DB, schema string) *PostgresAutomationsRepository {
	return &PostgresAutomationsRepository{db: db, schema: schema}
}

func (r *PostgresAutomationsRepository) GetActiveRulesByOwnerID(ctx context.Context, ownerID string) ([]*models.AutomationRule, error) {
	query := fmt.Sprintf(`
		SELECT id, owner_id, trigger_type, keywords, action_kind, message, ai_prompt, ai_fallback, ai_max_length, scoped_resource_ids, active, dm_mode, created_at, updated_at
		FROM %s.automation_rules
		WHERE owner_id = $1 AND active = TRUE
		ORDER BY updated_at DESC`, r.schema)

	var rules []*models.AutomationRule
	if err := r.db.SelectContext(ctx, &rules, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to get active automation rules: %w", err)
	}

	return rules, nil
}

func (r *PostgresAutomationsRepository) GetRuleByID(ctx context.Context, id string) (mo.Option[*models.AutomationRule], error) {
	query := fmt.Sprintf(`
		SELECT id, owner_id, trigger_type, keywords, action_kind, message, ai_prompt, ai_fallback, ai_max_length, scoped_resource_ids, active, dm_mode, created_at, updated_at
		FROM %s.automation_rules
		WHERE id = $1`, r.schema)

	rule := &models.AutomationRule{}
	err := r.db.GetContext(ctx, rule, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return mo.None[*models.AutomationRule](), nil
		}
		return mo.None[*models.AutomationRule](), fmt.Errorf("failed to get automation rule: %w", err)
	}

	return mo.Some(rule), nil
}
