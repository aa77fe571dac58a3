package conversations

import (
	"context"

	"github.com/samber/mo"
	"github.com/stretchr/testify/mock"

	"autoreply/models"
)

// MockConversationsService is a mock implementation of the ConversationsService interface
type MockConversationsService struct {
	mock.Mock
}

func (m *MockConversationsService) StartConversation(
	ctx context.Context,
	ownerID, actorID, ruleID string,
) (*models.ConversationSession, error) {
	args := m.Called(ctx, ownerID, actorID, ruleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ConversationSession), args.Error(1)
}

func (m *MockConversationsService) AddMessage(
	ctx context.Context,
	ownerID, actorID, ruleID string,
	role models.ConversationRole,
	text string,
) error {
	args := m.Called(ctx, ownerID, actorID, ruleID, role, text)
	return args.Error(0)
}

func (m *MockConversationsService) EndConversation(ctx context.Context, ownerID, actorID, ruleID string) error {
	args := m.Called(ctx, ownerID, actorID, ruleID)
	return args.Error(0)
}

func (m *MockConversationsService) IsInActiveConversation(
	ctx context.Context,
	ownerID, actorID, ruleID string,
) (bool, error) {
	args := m.Called(ctx, ownerID, actorID, ruleID)
	return args.Bool(0), args.Error(1)
}

func (m *MockConversationsService) GetSession(
	ctx context.Context,
	ownerID, actorID, ruleID string,
) (mo.Option[*models.ConversationSession], error) {
	args := m.Called(ctx, ownerID, actorID, ruleID)
	return args.Get(0).(mo.Option[*models.ConversationSession]), args.Error(1)
}

func (m *MockConversationsService) SweepInactive(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
