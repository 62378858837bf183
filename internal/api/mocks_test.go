package api_test

import (
	"context"

	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/Rrens/energy-agent/internal/repository/redis"
	"github.com/stretchr/testify/mock"
)

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Chat(ctx context.Context, userID string, req domain.QueryRequest) (*domain.AgentResponse, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AgentResponse), args.Error(1)
}

type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) Create(ctx context.Context, userID, name string, collectionID *string) (*domain.ChatSession, error) {
	args := m.Called(ctx, userID, name, collectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatSession), args.Error(1)
}

func (m *MockSessionService) Get(ctx context.Context, userID, sessionID string) (*domain.ChatSession, error) {
	args := m.Called(ctx, userID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatSession), args.Error(1)
}

func (m *MockSessionService) List(ctx context.Context, userID string, limit, offset int) ([]domain.ChatSession, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]domain.ChatSession), args.Error(1)
}

func (m *MockSessionService) Update(ctx context.Context, userID, sessionID string, input domain.SessionUpdate) (*domain.ChatSession, error) {
	args := m.Called(ctx, userID, sessionID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatSession), args.Error(1)
}

func (m *MockSessionService) Delete(ctx context.Context, userID, sessionID string) error {
	args := m.Called(ctx, userID, sessionID)
	return args.Error(0)
}

func (m *MockSessionService) Messages(ctx context.Context, userID, sessionID string, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, userID, sessionID, limit)
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockSessionService) ThoughtSteps(ctx context.Context, userID, sessionID string) ([]domain.ThoughtStep, error) {
	args := m.Called(ctx, userID, sessionID)
	return args.Get(0).([]domain.ThoughtStep), args.Error(1)
}

type MockCollectionService struct {
	mock.Mock
}

func (m *MockCollectionService) Create(ctx context.Context, userID string, input domain.CollectionCreate) (*domain.Collection, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Collection), args.Error(1)
}

func (m *MockCollectionService) Get(ctx context.Context, userID, id string) (*domain.Collection, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Collection), args.Error(1)
}

func (m *MockCollectionService) List(ctx context.Context, userID string) ([]domain.Collection, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Collection), args.Error(1)
}

type MockArtifactService struct {
	mock.Mock
}

func (m *MockArtifactService) List(ctx context.Context, userID, prefix string, limit int) ([]domain.ObjectInfo, error) {
	args := m.Called(ctx, userID, prefix, limit)
	return args.Get(0).([]domain.ObjectInfo), args.Error(1)
}

func (m *MockArtifactService) Get(ctx context.Context, userID, key string) (*domain.Object, error) {
	args := m.Called(ctx, userID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Object), args.Error(1)
}

func (m *MockArtifactService) Delete(ctx context.Context, userID string, keys []string) (int64, error) {
	args := m.Called(ctx, userID, keys)
	return args.Get(0).(int64), args.Error(1)
}

type MockCacheFlusher struct {
	mock.Mock
}

func (m *MockCacheFlusher) FlushCache(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockLimiter struct {
	mock.Mock
}

func (m *MockLimiter) Allow(ctx context.Context, key string) (redis.Decision, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(redis.Decision), args.Error(1)
}
