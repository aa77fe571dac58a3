package services

import (
	"context"

	"github.com/samber/mo"

	"autoreply/models"
)

// EventsService defines the interface for the durable event queue
type EventsService interface {
	// EnqueueEvent pushes a validated event onto the primary queue and
	// returns its request ID
	EnqueueEvent(ctx context.Context, event *models.InboundEvent) (string, error)
	// DequeueEvent claims the oldest queued event, or None when the queue
	// is empty
	DequeueEvent(ctx context.Context) (mo.Option[*models.QueuedEvent], error)
	// RequeueEvent puts an event back on the primary queue after a
	// transient processing failure
	RequeueEvent(ctx context.Context, event *models.InboundEvent, attempts int) error
	// MoveEventToFailed parks an event on the failed list for manual
	// replay; failed events are never auto-retried
	MoveEventToFailed(ctx context.Context, event *models.InboundEvent, attempts int) error
	QueueStats(ctx context.Context) (*models.QueueStats, error)
	ClearQueued(ctx context.Context) (int, error)
	ClearFailed(ctx context.Context) (int, error)
}

// DedupService defines the interface for the deduplication ledger
type DedupService interface {
	// MayProceed reports whether none of the keys is inside its cooldown
	// window. A false result means a duplicate was suppressed.
	MayProceed(ctx context.Context, keys []string) (bool, error)
	// MarkDone stamps all keys at once so a blocked duplicate and its
	// blocker share state from that point
	MarkDone(ctx context.Context, keys []string) error
	Stats(ctx context.Context) (*models.DedupStats, error)
	// Clear wipes the whole ledger and returns how many entries were
	// removed
	Clear(ctx context.Context) (int, error)
	// Sweep prunes expired ledger entries and returns how many were removed
	Sweep(ctx context.Context) (int, error)
}

// AutomationsService defines the interface for rule lookup and matching
type AutomationsService interface {
	ListActiveRules(ctx context.Context, ownerID string) ([]*models.AutomationRule, error)
	// SelectRule picks the best matching rule for the event, or None. The
	// tie-break among overlapping candidates is most-recently-updated.
	SelectRule(event *models.InboundEvent, rules []*models.AutomationRule) mo.Option[*models.AutomationRule]
}

// ConversationsService defines the interface for multi-turn session tracking
type ConversationsService interface {
	StartConversation(ctx context.Context, ownerID, actorID, ruleID string) (*models.ConversationSession, error)
	AddMessage(ctx context.Context, ownerID, actorID, ruleID string, role models.ConversationRole, text string) error
	EndConversation(ctx context.Context, ownerID, actorID, ruleID string) error
	IsInActiveConversation(ctx context.Context, ownerID, actorID, ruleID string) (bool, error)
	GetSession(ctx context.Context, ownerID, actorID, ruleID string) (mo.Option[*models.ConversationSession], error)
	// SweepInactive ends sessions idle past the inactivity threshold
	SweepInactive(ctx context.Context) (int, error)
}

// TriggersService defines the interface for the dispatch outcome log
type TriggersService interface {
	RecordDispatchResult(ctx context.Context, result *models.DispatchResult) error
}
