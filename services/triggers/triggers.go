package triggers

import (
	"context"
	"fmt"
	"log"

	"autoreply/core"
	"autoreply/db"
	"autoreply/models"
)

type TriggersService struct {
	automationTriggersRepo *db.PostgresAutomationTriggersRepository
}

func NewTriggersService(repo *db.PostgresAutomationTriggersRepository) *TriggersService {
	return &TriggersService{
		automationTriggersRepo: repo,
	}
}

// RecordDispatchResult appends one analytics row for a dispatch outcome. The
// pipeline never reads these rows back.
func (s *TriggersService) RecordDispatchResult(ctx context.Context, result *models.DispatchResult) error {
	if result == nil || result.Event == nil {
		return fmt.Errorf("dispatch result and its event cannot be nil")
	}

	trigger := &models.AutomationTrigger{
		ID:          core.NewID("atr"),
		RequestID:   result.Event.RequestID,
		OwnerID:     result.Event.SourceAccountID,
		TriggerType: result.Event.TriggerType,
		ActorID:     result.Event.ActorID,
		Outcome:     result.Outcome,
		ReplyText:   result.ReplyText,
		ErrorText:   result.Error,
	}
	if result.Rule != nil {
		trigger.OwnerID = result.Rule.OwnerID
		trigger.RuleID = result.Rule.ID
	}

	if err := s.automationTriggersRepo.CreateAutomationTrigger(ctx, trigger); err != nil {
		return fmt.Errorf("failed to record dispatch result: %w", err)
	}

	log.Printf("📋 Recorded %s outcome for event %s", result.Outcome, result.Event.RequestID)
	return nil
}
