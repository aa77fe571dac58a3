package automations

import (
	"context"

	"github.com/samber/mo"
	"github.com/stretchr/testify/mock"

	"autoreply/models"
)

// MockAutomationsService is a mock implementation of the AutomationsService interface
type MockAutomationsService struct {
	mock.Mock
}

func (m *MockAutomationsService) ListActiveRules(ctx context.Context, ownerID string) ([]*models.AutomationRule, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AutomationRule), args.Error(1)
}

func (m *MockAutomationsService) SelectRule(
	event *models.InboundEvent,
	rules []*models.AutomationRule,
) mo.Option[*models.AutomationRule] {
	args := m.Called(event, rules)
	return args.Get(0).(mo.Option[*models.AutomationRule])
}
