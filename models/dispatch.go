package models

import (
	"time"
)

type DispatchOutcome string

const (
	DispatchOutcomeSent             DispatchOutcome = "SENT"
	DispatchOutcomeSkippedDuplicate DispatchOutcome = "SKIPPED_DUPLICATE"
	DispatchOutcomeSkippedNoMatch   DispatchOutcome = "SKIPPED_NO_MATCH"
	DispatchOutcomeFailed           DispatchOutcome = "FAILED"
)

// DispatchResult records the outcome of one dispatch attempt. It is appended
// to the automation trigger log for observability and never read back by the
// pipeline.
type DispatchResult struct {
	Event     *InboundEvent   `json:"event"`
	Rule      *AutomationRule `json:"rule,omitempty"`
	Outcome   DispatchOutcome `json:"outcome"`
	ReplyText string          `json:"reply_text,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// AutomationTrigger is the analytics row written for every dispatch outcome
type AutomationTrigger struct {
	ID          string          `json:"id"           db:"id"`
	RequestID   string          `json:"request_id"   db:"request_id"`
	OwnerID     string          `json:"owner_id"     db:"owner_id"`
	RuleID      string          `json:"rule_id"      db:"rule_id"`
	TriggerType TriggerType     `json:"trigger_type" db:"trigger_type"`
	ActorID     string          `json:"actor_id"     db:"actor_id"`
	Outcome     DispatchOutcome `json:"outcome"      db:"outcome"`
	ReplyText   string          `json:"reply_text"   db:"reply_text"`
	ErrorText   string          `json:"error_text"   db:"error_text"`
	CreatedAt   time.Time       `json:"created_at"   db:"created_at"`
}
