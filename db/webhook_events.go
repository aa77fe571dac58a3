package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/mo"

	"autoreply/models"
)

type webhookEventRow struct {
	ID        string    `db:"id"`
	Payload   []byte    `db:"payload"`
	Status    string    `db:"status"`
	Attempts  int       `db:"attempts"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// PostgresWebhookEventsRepository backs the durable event queue. Queued
// events form a FIFO by enqueue time; failed events sit in the same table
// under status FAILED for manual replay and are never auto-retried.
type PostgresWebhookEventsRepository struct {
	db     *sqlx.DB
	schema string
}

func NewPostgresWebhookEventsRepository(db *sqlx.DB, schema string) *PostgresWebhookEventsRepository {
	return &PostgresWebhookEventsRepository{db: db, schema: schema}
}

func (r *PostgresWebhookEventsRepository) EnqueueEvent(ctx context.Context, event *models.InboundEvent, attempts int) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s.webhook_events (id, payload, status, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())`, r.schema)

	_, err = r.db.ExecContext(ctx, query, event.RequestID, payload, models.QueuedEventStatusQueued, attempts)
	if err != nil {
		return fmt.Errorf("failed to enqueue webhook event: %w", err)
	}

	return nil
}

// DequeueEvent claims and removes the oldest queued event. FOR UPDATE SKIP
// LOCKED keeps concurrent workers from claiming the same row.
func (r *PostgresWebhookEventsRepository) DequeueEvent(ctx context.Context) (mo.Option[*models.QueuedEvent], error) {
	query := fmt.Sprintf(`
		DELETE FROM %s.webhook_events
		WHERE id = (
			SELECT id FROM %s.webhook_events
			WHERE status = $1
			ORDER BY created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING id, payload, status, attempts, created_at, updated_at`, r.schema, r.schema)

	row := &webhookEventRow{}
	err := r.db.QueryRowxContext(ctx, query, models.QueuedEventStatusQueued).StructScan(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return mo.None[*models.QueuedEvent](), nil
		}
		return mo.None[*models.QueuedEvent](), fmt.Errorf("failed to dequeue webhook event: %w", err)
	}

	event := &models.InboundEvent{}
	if err := json.Unmarshal(row.Payload, event); err != nil {
		return mo.None[*models.QueuedEvent](), fmt.Errorf("failed to unmarshal event payload for %s: %w", row.ID, err)
	}

	return mo.Some(&models.QueuedEvent{Event: event, Attempts: row.Attempts}), nil
}

// MarkEventFailed records an event on the failed list for manual replay
func (r *PostgresWebhookEventsRepository) MarkEventFailed(ctx context.Context, event *models.InboundEvent, attempts int) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s.webhook_events (id, payload, status, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET status = $3, attempts = $4, updated_at = NOW()`, r.schema)

	_, err = r.db.ExecContext(ctx, query, event.RequestID, payload, models.QueuedEventStatusFailed, attempts)
	if err != nil {
		return fmt.Errorf("failed to mark webhook event failed: %w", err)
	}

	return nil
}

func (r *PostgresWebhookEventsRepository) CountEventsByStatus(ctx context.Context, status models.QueuedEventStatus) (int, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM %s.webhook_events WHERE status = $1`, r.schema)

	var count int
	if err := r.db.GetContext(ctx, &count, query, status); err != nil {
		return 0, fmt.Errorf("failed to count webhook events: %w", err)
	}

	return count, nil
}

func (r *PostgresWebhookEventsRepository) DeleteEventsByStatus(ctx context.Context, status models.QueuedEventStatus) (int, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s.webhook_events WHERE status = $1`, r.schema)

	result, err := r.db.ExecContext(ctx, query, status)
	if err != nil {
		return 0, fmt.Errorf("failed to delete webhook events: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return int(deleted), nil
}
