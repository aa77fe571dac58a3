package models

import (
	"time"
)

type ConversationRole string

const (
	ConversationRoleUser      ConversationRole = "user"
	ConversationRoleAssistant ConversationRole = "assistant"
)

// ConversationTurn is one message in a multi-turn AI conversation
type ConversationTurn struct {
	Role ConversationRole `json:"role"`
	Text string           `json:"text"`
	At   time.Time        `json:"at"`
}

// ConversationSession holds short-lived multi-turn state for one
// (owner, actor, rule) triple. Sessions are owned exclusively by the
// conversations service and live in the TTL key-value store.
type ConversationSession struct {
	OwnerID        string             `json:"owner_id"`
	ActorID        string             `json:"actor_id"`
	RuleID         string             `json:"rule_id"`
	IsActive       bool               `json:"is_active"`
	Turns          []ConversationTurn `json:"turns"`
	StartedAt      time.Time          `json:"started_at"`
	LastActivityAt time.Time          `json:"last_activity_at"`
}

// RecentTurns returns the most recent n turns in order, for bounding the
// generation context window
func (s *ConversationSession) RecentTurns(n int) []ConversationTurn {
	if n <= 0 || len(s.Turns) <= n {
		return s.Turns
	}
	return s.Turns[len(s.Turns)-n:]
}
