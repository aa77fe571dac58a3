package anthropic

import (
	"context"

	"github.com/stretchr/testify/mock"

	"autoreply/models"
)

// MockGenerationClient is a mock implementation of the clients.GenerationClient interface
type MockGenerationClient struct {
	mock.Mock
}

func (m *MockGenerationClient) GenerateReply(
	ctx context.Context,
	systemPrompt string,
	turns []models.ConversationTurn,
	maxLength int,
) (string, error) {
	args := m.Called(ctx, systemPrompt, turns, maxLength)
	return args.String(0), args.Error(1)
}
