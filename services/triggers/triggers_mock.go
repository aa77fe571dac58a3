package triggers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"autoreply/models"
)

// MockTriggersService is a mock implementation of the TriggersService interface
type MockTriggersService struct {
	mock.Mock
}

func (m *MockTriggersService) RecordDispatchResult(ctx context.Context, result *models.DispatchResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}
