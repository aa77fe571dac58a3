package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"autoreply/models"
)

// PostgresAutomationTriggersRepository is the append-only analytics log of
// dispatch outcomes. The pipeline only ever writes to it.
type PostgresAutomationTriggersRepository struct {
	db     *sqlx.DB
	schema string
}

func NewPostgresAutomationTriggersRepository(db *sqlx.DB, schema string) *PostgresAutomationTriggersRepository {
	return &PostgresAutomationTriggersRepository{db: db, schema: schema}
}

func (r *PostgresAutomationTriggersRepository) CreateAutomationTrigger(ctx context.Context, trigger *models.AutomationTrigger) error {
	query := fmt.Sprintf(`
		INSERT INTO %s.automation_triggers (id, request_id, owner_id, rule_id, trigger_type, actor_id, outcome, reply_text, error_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id, request_id, owner_id, rule_id, trigger_type, actor_id, outcome, reply_text, error_text, created_at`, r.schema)

	err := r.db.QueryRowxContext(ctx, query,
		trigger.ID, trigger.RequestID, trigger.OwnerID, trigger.RuleID,
		trigger.TriggerType, trigger.ActorID, trigger.Outcome, trigger.ReplyText, trigger.ErrorText,
	).StructScan(trigger)
	if err != nil {
		return fmt.Errorf("failed to create automation trigger: %w", err)
	}

	return nil
}
