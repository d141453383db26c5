package mocks

import (
	"context"

	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockWorkflowStateRepository is a mock implementation of persistence.WorkflowStateRepository.
type MockWorkflowStateRepository struct {
	mock.Mock
}

var _ persistence.WorkflowStateRepository = (*MockWorkflowStateRepository)(nil)

func (m *MockWorkflowStateRepository) Get(ctx context.Context, id string) (*models.WorkflowState, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowState), args.Error(1)
}

func (m *MockWorkflowStateRepository) Persist(ctx context.Context, state *models.WorkflowState) error {
	args := m.Called(ctx, state)

	return args.Error(0)
}

// MockPersistence serves the given repositories; health and close are mocked.
type MockPersistence struct {
	mock.Mock

	DefinitionRepository persistence.DefinitionRepository
	WorkflowRepository   persistence.WorkflowStateRepository
	EventRepository      persistence.EventRepository
}

var _ persistence.Persistence = (*MockPersistence)(nil)

// NewMockPersistence starts from base and lets tests replace single repositories.
func NewMockPersistence(base persistence.Persistence) *MockPersistence {
	return &MockPersistence{
		DefinitionRepository: base.Definitions(),
		WorkflowRepository:   base.Workflows(),
		EventRepository:      base.Events(),
	}
}

func (m *MockPersistence) Definitions() persistence.DefinitionRepository {
	return m.DefinitionRepository
}

func (m *MockPersistence) Workflows() persistence.WorkflowStateRepository {
	return m.WorkflowRepository
}

func (m *MockPersistence) Events() persistence.EventRepository {
	return m.EventRepository
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
