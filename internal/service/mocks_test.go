package service

import (
	"context"
	"sync"

	"github.com/Rrens/energy-agent/internal/agent"
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
	if fn, ok := args.Get(0).(func(context.Context, string) *domain.ChatSession); ok {
		return fn(ctx, id), args.Error(1)
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

// MockMessageRepository mocks the MessageRepository interface
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, message *domain.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockMessageRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, sessionID, limit)
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockMessageRepository) DeleteBySession(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

// MockCollectionRepository mocks the CollectionRepository interface
type MockCollectionRepository struct {
	mock.Mock
}

func (m *MockCollectionRepository) Create(ctx context.Context, collection *domain.Collection) error {
	args := m.Called(ctx, collection)
	return args.Error(0)
}

func (m *MockCollectionRepository) Get(ctx context.Context, id string) (*domain.Collection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Collection), args.Error(1)
}

func (m *MockCollectionRepository) ListByOwner(ctx context.Context, owner string) ([]domain.Collection, error) {
	args := m.Called(ctx, owner)
	return args.Get(0).([]domain.Collection), args.Error(1)
}

// MockCollectionCache mocks the CollectionCache interface
type MockCollectionCache struct {
	mock.Mock
}

func (m *MockCollectionCache) Get(ctx context.Context, id string) (*domain.Collection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Collection), args.Error(1)
}

func (m *MockCollectionCache) Set(ctx context.Context, c *domain.Collection) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCollectionCache) Invalidate(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCollectionCache) FlushAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockObjectStore mocks the ObjectStore interface
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) List(ctx context.Context, prefix string, limit int) ([]domain.ObjectInfo, error) {
	args := m.Called(ctx, prefix, limit)
	return args.Get(0).([]domain.ObjectInfo), args.Error(1)
}

func (m *MockObjectStore) Get(ctx context.Context, key string) (*domain.Object, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Object), args.Error(1)
}

func (m *MockObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	args := m.Called(ctx, key, data, contentType)
	return args.Error(0)
}

func (m *MockObjectStore) Delete(ctx context.Context, keys ...string) (int64, error) {
	args := m.Called(ctx, keys)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockObjectStore) Close(ctx context.Context) error {
	return nil
}

// MockQueryRouter mocks the QueryRouter interface
type MockQueryRouter struct {
	mock.Mock
}

func (m *MockQueryRouter) RouteQuery(ctx context.Context, q agent.Query) *domain.AgentResponse {
	args := m.Called(ctx, q)
	return args.Get(0).(*domain.AgentResponse)
}

// MockStepLister mocks the StepLister interface
type MockStepLister struct {
	mock.Mock
}

func (m *MockStepLister) ListSteps(ctx context.Context, sessionID string) ([]domain.ThoughtStep, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).([]domain.ThoughtStep), args.Error(1)
}

// MockLLMProvider mocks the llm.Provider interface
type MockLLMProvider struct {
	mock.Mock
}

func (m *MockLLMProvider) Name() string { return "mock" }

func (m *MockLLMProvider) AvailableModels() []string { return []string{"mock-1"} }

func (m *MockLLMProvider) DefaultModel() string { return "mock-1" }

func (m *MockLLMProvider) IsConfigured() bool { return true }

func (m *MockLLMProvider) Generate(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	args := m.Called(ctx, req, model)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.Response), args.Error(1)
}

// messageLog is an in-memory MessageRepository that records call order
type messageLog struct {
	mu       sync.Mutex
	messages []domain.Message
	calls    []string
}

func (l *messageLog) Create(ctx context.Context, message *domain.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, "create:"+string(message.Role))
	l.messages = append(l.messages, *message)
	return nil
}

func (l *messageLog) ListBySession(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, "list")
	out := []domain.Message{}
	for _, m := range l.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (l *messageLog) DeleteBySession(ctx context.Context, sessionID string) error {
	return nil
}

func (l *messageLog) snapshot() ([]domain.Message, []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Message(nil), l.messages...), append([]string(nil), l.calls...)
}
