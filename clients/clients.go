// Package clients defines the interfaces for the external collaborators the
// pipeline talks to: the platform send API and the reply generator.
package clients

import (
	"context"

	"autoreply/models"
)

// SendResult is the outcome of a successful send-API call
type SendResult struct {
	ProviderMessageID string `json:"provider_message_id"`
}

// MessengerClient is the external send-message interface. Implementations
// must bound every call with the request context so a stuck platform API
// cannot stall the worker.
type MessengerClient interface {
	// SendDirectMessage delivers text to a user's inbox on behalf of the
	// given account
	SendDirectMessage(ctx context.Context, accountID, recipientID, text string) (*SendResult, error)
	// ReplyToComment posts a public reply under the given comment
	ReplyToComment(ctx context.Context, accountID, commentID, text string) (*SendResult, error)
}

// GenerationClient is the external "generate reply" collaborator. Callers
// treat any error as "use the configured fallback text" - a matched
// automation must always produce some reply.
type GenerationClient interface {
	GenerateReply(ctx context.Context, systemPrompt string, turns []models.ConversationTurn, maxLength int) (string, error)
}
