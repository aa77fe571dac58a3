package events

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/samber/mo"

	"autoreply/core"
	"autoreply/db"
	"autoreply/models"
)

type EventsService struct {
	webhookEventsRepo *db.PostgresWebhookEventsRepository
}

func NewEventsService(repo *db.PostgresWebhookEventsRepository) *EventsService {
	return &EventsService{
		webhookEventsRepo: repo,
	}
}

func (s *EventsService) EnqueueEvent(ctx context.Context, event *models.InboundEvent) (string, error) {
	if event == nil {
		return "", fmt.Errorf("event cannot be nil")
	}
	if event.SourceAccountID == "" {
		return "", fmt.Errorf("source_account_id cannot be empty")
	}
	if event.TriggerType == "" {
		return "", fmt.Errorf("trigger_type cannot be empty")
	}

	if event.RequestID == "" {
		event.RequestID = core.NewID("evt")
	}
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now().UTC()
	}

	if err := s.webhookEventsRepo.EnqueueEvent(ctx, event, 0); err != nil {
		return "", core.NewTransientError(fmt.Errorf("failed to enqueue event: %w", err))
	}

	log.Printf("📋 Enqueued %s event %s for account %s", event.TriggerType, event.RequestID, event.SourceAccountID)
	return event.RequestID, nil
}

func (s *EventsService) DequeueEvent(ctx context.Context) (mo.Option[*models.QueuedEvent], error) {
	maybeQueued, err := s.webhookEventsRepo.DequeueEvent(ctx)
	if err != nil {
		return mo.None[*models.QueuedEvent](), core.NewTransientError(fmt.Errorf("failed to dequeue event: %w", err))
	}
	return maybeQueued, nil
}

func (s *EventsService) RequeueEvent(ctx context.Context, event *models.InboundEvent, attempts int) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	if err := s.webhookEventsRepo.EnqueueEvent(ctx, event, attempts); err != nil {
		return fmt.Errorf("failed to requeue event %s: %w", event.RequestID, err)
	}

	log.Printf("🔁 Requeued event %s (attempt %d)", event.RequestID, attempts)
	return nil
}

func (s *EventsService) MoveEventToFailed(ctx context.Context, event *models.InboundEvent, attempts int) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	if err := s.webhookEventsRepo.MarkEventFailed(ctx, event, attempts); err != nil {
		return fmt.Errorf("failed to move event %s to failed list: %w", event.RequestID, err)
	}

	log.Printf("⚠️ Moved event %s to failed list after %d attempts", event.RequestID, attempts)
	return nil
}

func (s *EventsService) QueueStats(ctx context.Context) (*models.QueueStats, error) {
	queued, err := s.webhookEventsRepo.CountEventsByStatus(ctx, models.QueuedEventStatusQueued)
	if err != nil {
		return nil, fmt.Errorf("failed to count queued events: %w", err)
	}

	failed, err := s.webhookEventsRepo.CountEventsByStatus(ctx, models.QueuedEventStatusFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to count failed events: %w", err)
	}

	return &models.QueueStats{Queued: queued, Failed: failed}, nil
}

func (s *EventsService) ClearQueued(ctx context.Context) (int, error) {
	deleted, err := s.webhookEventsRepo.DeleteEventsByStatus(ctx, models.QueuedEventStatusQueued)
	if err != nil {
		return 0, fmt.Errorf("failed to clear queued events: %w", err)
	}

	log.Printf("🧹 Cleared %d queued events", deleted)
	return deleted, nil
}

func (s *EventsService) ClearFailed(ctx context.Context) (int, error) {
	deleted, err := s.webhookEventsRepo.DeleteEventsByStatus(ctx, models.QueuedEventStatusFailed)
	if err != nil {
		return 0, fmt.Errorf("failed to clear failed events: %w", err)
	}

	log.Printf("🧹 Cleared %d failed events", deleted)
	return deleted, nil
}
