package models

import (
	"time"

	"github.com/lib/pq"
)

type ActionKind string

const (
	ActionKindTemplate ActionKind = "TEMPLATE"
	ActionKindAI       ActionKind = "AI"
)

type DMMode string

const (
	DMModeReplyInThread DMMode = "REPLY_IN_THREAD"
	DMModeDirectMessage DMMode = "DIRECT_MESSAGE"
)

// AutomationRule is a user-configured mapping from a trigger pattern to a
// reply action. It is owned by the dashboard side of the product and is
// read-only to the pipeline.
type AutomationRule struct {
	ID                string         `json:"id"                  db:"id"`
	OwnerID           string         `json:"owner_id"            db:"owner_id"`
	TriggerType       TriggerType    `json:"trigger_type"        db:"trigger_type"`
	Keywords          pq.StringArray `json:"keywords"            db:"keywords"`
	ActionKind        ActionKind     `json:"action_kind"         db:"action_kind"`
	Message           string         `json:"message"             db:"message"`
	AIPrompt          string         `json:"ai_prompt"           db:"ai_prompt"`
	AIFallback        string         `json:"ai_fallback"         db:"ai_fallback"`
	AIMaxLength       int            `json:"ai_max_length"       db:"ai_max_length"`
	ScopedResourceIDs pq.StringArray `json:"scoped_resource_ids" db:"scoped_resource_ids"`
	Active            bool           `json:"active"              db:"active"`
	DMMode            DMMode         `json:"dm_mode"             db:"dm_mode"`
	CreatedAt         time.Time      `json:"created_at"          db:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"          db:"updated_at"`
}

// AppliesToResource reports whether the rule covers the given post/media id.
// An empty scope set means the rule is unscoped and matches any resource.
func (r *AutomationRule) AppliesToResource(resourceID string) bool {
	if len(r.ScopedResourceIDs) == 0 {
		return true
	}
	if resourceID == "" {
		return false
	}
	for _, scoped := range r.ScopedResourceIDs {
		if scoped == resourceID {
			return true
		}
	}
	return false
}

// ConfiguredReplyText returns the static text the rule is configured with:
// the template message for template rules, the generation fallback for AI
// rules. Used for the content-prefix dedup key, which must be computable
// before any reply is generated.
func (r *AutomationRule) ConfiguredReplyText() string {
	if r.ActionKind == ActionKindAI {
		return r.AIFallback
	}
	return r.Message
}
