package messenger

import (
	"context"

	"github.com/stretchr/testify/mock"

	"autoreply/clients"
)

// MockMessengerClient is a mock implementation of the clients.MessengerClient interface
type MockMessengerClient struct {
	mock.Mock
}

func (m *MockMessengerClient) SendDirectMessage(
	ctx context.Context,
	accountID, recipientID, text string,
) (*clients.SendResult, error) {
	args := m.Called(ctx, accountID, recipientID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clients.SendResult), args.Error(1)
}

func (m *MockMessengerClient) ReplyToComment(
	ctx context.Context,
	accountID, commentID, text string,
) (*clients.SendResult, error) {
	args := m.Called(ctx, accountID, commentID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clients.SendResult), args.Error(1)
}
