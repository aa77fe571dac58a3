package models

import (
	"time"
)

type TriggerType string

const (
	TriggerTypeComment TriggerType = "COMMENT"
	TriggerTypeDM      TriggerType = "DM"
	TriggerTypeFollow  TriggerType = "FOLLOW"
)

// InboundEvent is one validated webhook delivery. It is created at webhook
// receipt, queued, and consumed exactly once by the worker loop; it is never
// mutated after creation.
type InboundEvent struct {
	RequestID        string      `json:"request_id"`
	ReceivedAt       time.Time   `json:"received_at"`
	SourceAccountID  string      `json:"source_account_id"`
	TriggerType      TriggerType `json:"trigger_type"`
	TriggerID        string      `json:"trigger_id"`
	TriggerText      string      `json:"trigger_text"`
	ActorID          string      `json:"actor_id"`
	ActorUsername    string      `json:"actor_username"`
	TargetResourceID string      `json:"target_resource_id,omitempty"`
	ParentID         string      `json:"parent_id,omitempty"`
}

// IsReplyToComment reports whether the event is a reply to another comment
// rather than a top-level comment on a post
func (e *InboundEvent) IsReplyToComment() bool {
	return e.ParentID != ""
}

type QueuedEventStatus string

const (
	QueuedEventStatusQueued QueuedEventStatus = "QUEUED"
	QueuedEventStatusFailed QueuedEventStatus = "FAILED"
)

// QueuedEvent wraps an InboundEvent with its queue bookkeeping as stored in
// the webhook_events table
type QueuedEvent struct {
	Event    *InboundEvent
	Attempts int
}
