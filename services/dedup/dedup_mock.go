package dedup

import (
	"context"

	"github.com/stretchr/testify/mock"

	"autoreply/models"
)

// MockDedupService is a mock implementation of the DedupService interface
type MockDedupService struct {
	mock.Mock
}

func (m *MockDedupService) MayProceed(ctx context.Context, keys []string) (bool, error) {
	args := m.Called(ctx, keys)
	return args.Bool(0), args.Error(1)
}

func (m *MockDedupService) MarkDone(ctx context.Context, keys []string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func (m *MockDedupService) Stats(ctx context.Context) (*models.DedupStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DedupStats), args.Error(1)
}

func (m *MockDedupService) Clear(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockDedupService) Sweep(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
