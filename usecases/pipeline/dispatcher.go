// Package pipeline drives a dequeued event through matching, deduplication
// and dispatch. Side effects are strictly ordered: the dedup gate runs before
// any external call, and the ledger is marked and the conversation appended
// only after a confirmed send. That ordering is the core correctness property
// of the whole system.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"autoreply/clients"
	"autoreply/config"
	"autoreply/models"
	"autoreply/services"
	"autoreply/services/dedup"
	"autoreply/utils"
)

type PipelineUseCase struct {
	dedupService         services.DedupService
	automationsService   services.AutomationsService
	conversationsService services.ConversationsService
	triggersService      services.TriggersService
	messengerClient      clients.MessengerClient
	generationClient     clients.GenerationClient
	workerConfig         config.WorkerConfig
	conversationConfig   config.ConversationConfig
	maxReplyLength       int
}

func NewPipelineUseCase(
	dedupService services.DedupService,
	automationsService services.AutomationsService,
	conversationsService services.ConversationsService,
	triggersService services.TriggersService,
	messengerClient clients.MessengerClient,
	generationClient clients.GenerationClient,
	workerConfig config.WorkerConfig,
	conversationConfig config.ConversationConfig,
	maxReplyLength int,
) *PipelineUseCase {
	return &PipelineUseCase{
		dedupService:         dedupService,
		automationsService:   automationsService,
		conversationsService: conversationsService,
		triggersService:      triggersService,
		messengerClient:      messengerClient,
		generationClient:     generationClient,
		workerConfig:         workerConfig,
		conversationConfig:   conversationConfig,
		maxReplyLength:       maxReplyLength,
	}
}

// ProcessEvent runs one event through rule matching and dispatch. A nil
// error means the outcome is terminal; a non-nil error means the event may
// be retried or parked depending on its classification.
func (u *PipelineUseCase) ProcessEvent(ctx context.Context, event *models.InboundEvent) (*models.DispatchResult, error) {
	log.Printf("📋 Starting to process event %s (%s from actor %s)", event.RequestID, event.TriggerType, event.ActorID)

	if event.SourceAccountID == "" {
		result := u.failedResult(ctx, event, nil, fmt.Errorf("event has no source account"))
		return result, fmt.Errorf("event %s has no source account", event.RequestID)
	}

	rules, err := u.automationsService.ListActiveRules(ctx, event.SourceAccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules for account %s: %w", event.SourceAccountID, err)
	}

	maybeRule := u.automationsService.SelectRule(event, rules)
	if !maybeRule.IsPresent() {
		log.Printf("📋 No automation rule matched event %s", event.RequestID)
		result := &models.DispatchResult{Event: event, Outcome: models.DispatchOutcomeSkippedNoMatch}
		u.recordResult(ctx, result)
		return result, nil
	}

	return u.Dispatch(ctx, event, maybeRule.MustGet())
}

// Dispatch renders and sends the reply for a matched rule
func (u *PipelineUseCase) Dispatch(ctx context.Context, event *models.InboundEvent, rule *models.AutomationRule) (*models.DispatchResult, error) {
	// Dedup gate comes first: a suppressed duplicate must cause no
	// external call at all
	keys := dedup.KeysFor(event, rule)
	ok, err := u.dedupService.MayProceed(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed dedup check for event %s: %w", event.RequestID, err)
	}
	if !ok {
		log.Printf("🛑 Event %s suppressed as duplicate for rule %s", event.RequestID, rule.ID)
		result := &models.DispatchResult{Event: event, Rule: rule, Outcome: models.DispatchOutcomeSkippedDuplicate}
		u.recordResult(ctx, result)
		return result, nil
	}

	// Generation and send share one timeout so a stuck external call
	// cannot stall the worker
	dispatchCtx, cancel := context.WithTimeout(ctx, u.workerConfig.DispatchTimeout)
	defer cancel()

	replyText, err := u.renderReply(dispatchCtx, event, rule)
	if err != nil {
		result := u.failedResult(ctx, event, rule, err)
		return result, err
	}

	replyText = utils.TruncateWithEllipsis(replyText, u.replyLimit(rule))

	sendErr := u.send(dispatchCtx, event, rule, replyText)
	if sendErr != nil {
		// The ledger stays unmarked so a legitimate retry of this event
		// can still succeed
		log.Printf("❌ Failed to send reply for event %s: %v", event.RequestID, sendErr)
		result := u.failedResult(ctx, event, rule, sendErr)
		return result, sendErr
	}

	if err := u.dedupService.MarkDone(ctx, keys); err != nil {
		log.Printf("⚠️ Failed to mark dedup ledger for event %s: %v", event.RequestID, err)
	}

	if rule.ActionKind == models.ActionKindAI {
		if err := u.conversationsService.AddMessage(ctx, rule.OwnerID, event.ActorID, rule.ID, models.ConversationRoleAssistant, replyText); err != nil {
			log.Printf("⚠️ Failed to append assistant turn for event %s: %v", event.RequestID, err)
		}
	}

	log.Printf("✅ Dispatched reply for event %s via rule %s", event.RequestID, rule.ID)
	result := &models.DispatchResult{
		Event:     event,
		Rule:      rule,
		Outcome:   models.DispatchOutcomeSent,
		ReplyText: replyText,
	}
	u.recordResult(ctx, result)
	return result, nil
}

// renderReply produces the outbound text: template rules return their
// configured message verbatim, AI rules continue the conversation with the
// generator and fall back to the configured static text on any generation
// failure. A matched automation always produces some reply.
func (u *PipelineUseCase) renderReply(ctx context.Context, event *models.InboundEvent, rule *models.AutomationRule) (string, error) {
	if rule.ActionKind != models.ActionKindAI {
		return rule.Message, nil
	}

	continuing, err := u.conversationsService.IsInActiveConversation(ctx, rule.OwnerID, event.ActorID, rule.ID)
	if err != nil {
		log.Printf("⚠️ Failed to check conversation state for event %s: %v", event.RequestID, err)
	}
	if continuing {
		log.Printf("💬 Continuing active conversation for actor %s on rule %s", event.ActorID, rule.ID)
	}

	if _, err := u.conversationsService.StartConversation(ctx, rule.OwnerID, event.ActorID, rule.ID); err != nil {
		log.Printf("⚠️ Failed to start conversation for event %s, replying with fallback: %v", event.RequestID, err)
		return u.fallbackReply(event, rule, err)
	}
	if err := u.conversationsService.AddMessage(ctx, rule.OwnerID, event.ActorID, rule.ID, models.ConversationRoleUser, event.TriggerText); err != nil {
		log.Printf("⚠️ Failed to append user turn for event %s: %v", event.RequestID, err)
	}

	turns := []models.ConversationTurn{{Role: models.ConversationRoleUser, Text: event.TriggerText}}
	maybeSession, err := u.conversationsService.GetSession(ctx, rule.OwnerID, event.ActorID, rule.ID)
	if err == nil && maybeSession.IsPresent() {
		if recent := maybeSession.MustGet().RecentTurns(u.conversationConfig.ContextWindow); len(recent) > 0 {
			turns = recent
		}
	}

	reply, err := u.generationClient.GenerateReply(ctx, rule.AIPrompt, turns, u.replyLimit(rule))
	if err != nil {
		log.Printf("⚠️ Generation failed for event %s, using fallback text: %v", event.RequestID, err)
		return u.fallbackReply(event, rule, err)
	}

	return reply, nil
}

// fallbackReply substitutes the rule's static text when generation cannot
// run. A rule with no fallback configured has nothing sendable, so the
// failure propagates instead of replying with an empty string.
func (u *PipelineUseCase) fallbackReply(event *models.InboundEvent, rule *models.AutomationRule, cause error) (string, error) {
	if rule.AIFallback == "" {
		return "", fmt.Errorf("failed to generate reply for event %s and rule %s has no fallback configured: %w", event.RequestID, rule.ID, cause)
	}
	return rule.AIFallback, nil
}

// replyLimit is the rule's own cap when set, otherwise the platform limit
func (u *PipelineUseCase) replyLimit(rule *models.AutomationRule) int {
	if rule.ActionKind == models.ActionKindAI && rule.AIMaxLength > 0 && rule.AIMaxLength < u.maxReplyLength {
		return rule.AIMaxLength
	}
	return u.maxReplyLength
}

// send routes the reply through the right platform surface: public comment
// replies stay in the thread unless the rule asks for a direct message
func (u *PipelineUseCase) send(ctx context.Context, event *models.InboundEvent, rule *models.AutomationRule, text string) error {
	if event.TriggerType == models.TriggerTypeComment && rule.DMMode != models.DMModeDirectMessage {
		_, err := u.messengerClient.ReplyToComment(ctx, event.SourceAccountID, event.TriggerID, text)
		return err
	}

	_, err := u.messengerClient.SendDirectMessage(ctx, event.SourceAccountID, event.ActorID, text)
	return err
}

func (u *PipelineUseCase) failedResult(ctx context.Context, event *models.InboundEvent, rule *models.AutomationRule, cause error) *models.DispatchResult {
	result := &models.DispatchResult{
		Event:   event,
		Rule:    rule,
		Outcome: models.DispatchOutcomeFailed,
		Error:   cause.Error(),
	}
	u.recordResult(ctx, result)
	return result
}

// recordResult appends to the trigger log. Observability failures never fail
// a dispatch.
func (u *PipelineUseCase) recordResult(ctx context.Context, result *models.DispatchResult) {
	if err := u.triggersService.RecordDispatchResult(ctx, result); err != nil {
		log.Printf("⚠️ Failed to record dispatch result for event %s: %v", result.Event.RequestID, err)
	}
}
