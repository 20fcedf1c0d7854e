package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/persistence"
)

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock
}

var _ persistence.Persistence = (*MockPersistence)(nil)

func (m *MockPersistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockPersistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockPersistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockPersistence) DeleteWorkflow(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
