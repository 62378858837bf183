package agent

import (
	"context"

	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/Rrens/energy-agent/internal/llm"
	"github.com/stretchr/testify/mock"
)

// MockSessionRepository mocks the SessionRepository interface
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.ChatSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) Get(ctx context.Context, id string) (*domain.ChatSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatSession), args.Error(1)
}

func (m *MockSessionRepository) ListByOwner(ctx context.Context, owner string, limit, offset int) ([]domain.ChatSession, error) {
	args := m.Called(ctx, owner, limit, offset)
	return args.Get(0).([]domain.ChatSession), args.Error(1)
}

func (m *MockSessionRepository) Update(ctx context.Context, session *domain.ChatSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockHandler mocks an agent Handler
type MockHandler struct {
	mock.Mock
}

func (m *MockHandler) Handle(ctx context.Context, req Request) (*Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Result), args.Error(1)
}

// MockProvider mocks an llm.Provider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string              { return "mock" }
func (m *MockProvider) AvailableModels() []string { return []string{"mock-1"} }
func (m *MockProvider) DefaultModel() string      { return "mock-1" }
func (m *MockProvider) IsConfigured() bool        { return true }

func (m *MockProvider) Generate(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	args := m.Called(ctx, req, model)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.Response), args.Error(1)
}
