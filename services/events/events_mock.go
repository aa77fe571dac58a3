package events

import (
	"context"

	"github.com/samber/mo"
	"github.com/stretchr/testify/mock"

	"autoreply/models"
)

// MockEventsService is a mock implementation of the EventsService interface
type MockEventsService struct {
	mock.Mock
}

func (m *MockEventsService) EnqueueEvent(ctx context.Context, event *models.InboundEvent) (string, error) {
	args := m.Called(ctx, event)
	return args.String(0), args.Error(1)
}

func (m *MockEventsService) DequeueEvent(ctx context.Context) (mo.Option[*models.QueuedEvent], error) {
	args := m.Called(ctx)
	return args.Get(0).(mo.Option[*models.QueuedEvent]), args.Error(1)
}

func (m *MockEventsService) RequeueEvent(ctx context.Context, event *models.InboundEvent, attempts int) error {
	args := m.Called(ctx, event, attempts)
	return args.Error(0)
}

func (m *MockEventsService) MoveEventToFailed(ctx context.Context, event *models.InboundEvent, attempts int) error {
	args := m.Called(ctx, event, attempts)
	return args.Error(0)
}

func (m *MockEventsService) QueueStats(ctx context.Context) (*models.QueueStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QueueStats), args.Error(1)
}

func (m *MockEventsService) ClearQueued(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockEventsService) ClearFailed(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
