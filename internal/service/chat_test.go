package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Rrens/energy-agent/internal/agent"
	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/Rrens/energy-agent/internal/history"
	"github.com/Rrens/energy-agent/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func okResponse(agentUsed string) *domain.AgentResponse {
	return &domain.AgentResponse{
		Success:           true,
		Message:           "Porosity of WELL-001 is 18.2%",
		Artifacts:         []domain.Artifact{{"messageContentType": "comprehensive_porosity_analysis"}},
		ThoughtSteps:      []domain.ThoughtStep{{ID: "s1", Action: "Calculation", Status: domain.StepComplete}},
		SourceAttribution: []domain.SourceAttribution{},
		AgentUsed:         agentUsed,
	}
}

func TestChat_UnknownAgentType(t *testing.T) {
	router := new(MockQueryRouter)
	sessions := new(MockSessionRepository)
	svc := NewChatService(router, sessions, &messageLog{}, history.NewLoader(&messageLog{}, 10))

	_, err := svc.Chat(context.Background(), "user-1", domain.QueryRequest{Message: "hi", AgentType: "weather"})

	assert.ErrorIs(t, err, domain.ErrValidation)
	router.AssertNotCalled(t, "RouteQuery", mock.Anything, mock.Anything)
}

func TestChat_ForeignSessionIsForbidden(t *testing.T) {
	router := new(MockQueryRouter)
	sessions := new(MockSessionRepository)
	messages := &messageLog{}
	sessions.On("Get", mock.Anything, "s-1").Return(&domain.ChatSession{ID: "s-1", Owner: "user-2"}, nil)

	svc := NewChatService(router, sessions, messages, history.NewLoader(messages, 10))
	_, err := svc.Chat(context.Background(), "user-1", domain.QueryRequest{Message: "porosity", ChatSessionID: "s-1"})

	assert.ErrorIs(t, err, domain.ErrForbidden)
	router.AssertNotCalled(t, "RouteQuery", mock.Anything, mock.Anything)
	stored, _ := messages.snapshot()
	assert.Empty(t, stored)
}

func TestChat_MissingSession(t *testing.T) {
	sessions := new(MockSessionRepository)
	sessions.On("Get", mock.Anything, "s-404").Return(nil, domain.ErrNotFound)
	messages := &messageLog{}

	svc := NewChatService(new(MockQueryRouter), sessions, messages, history.NewLoader(messages, 10))
	_, err := svc.Chat(context.Background(), "user-1", domain.QueryRequest{Message: "hi", ChatSessionID: "s-404"})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChat_ExistingSessionPersistsTurn(t *testing.T) {
	session := &domain.ChatSession{ID: "s-1", Owner: "user-1", Name: "Porosity work", Version: 3}
	sessions := new(MockSessionRepository)
	sessions.On("Get", mock.Anything, "s-1").Return(session, nil)

	messages := &messageLog{}
	earlier := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	messages.messages = []domain.Message{
		{ID: "m1", SessionID: "s-1", Role: domain.RoleUser, Content: "hello", CreatedAt: earlier},
		{ID: "m2", SessionID: "s-1", Role: domain.RoleAssistant, Content: "hi", CreatedAt: earlier.Add(time.Second)},
	}

	router := new(MockQueryRouter)
	router.On("RouteQuery", mock.Anything, mock.MatchedBy(func(q agent.Query) bool {
		return q.Message == "porosity of WELL-001" &&
			q.AgentType == domain.AgentPetrophysics &&
			q.Session == session &&
			len(q.History) == 2 && q.History[1].ID == "m2" &&
			q.Recorder != nil
	})).Return(okResponse("petrophysics"))

	svc := NewChatService(router, sessions, messages, history.NewLoader(messages, 10))
	resp, err := svc.Chat(context.Background(), "user-1", domain.QueryRequest{
		Message:       "porosity of WELL-001",
		ChatSessionID: "s-1",
		AgentType:     "petrophysics",
	})
	require.NoError(t, err)
	svc.Wait()

	assert.True(t, resp.Success)
	assert.Equal(t, "petrophysics", resp.AgentUsed)

	stored, calls := messages.snapshot()
	assert.Equal(t, []string{"list", "create:user", "create:assistant"}, calls)
	require.Len(t, stored, 4)
	assert.Equal(t, "porosity of WELL-001", stored[2].Content)
	assert.Equal(t, "user-1", stored[2].Owner)
	assistant := stored[3]
	assert.Equal(t, domain.RoleAssistant, assistant.Role)
	assert.Equal(t, "petrophysics", assistant.AgentUsed)
	assert.Len(t, assistant.Artifacts, 1)
	assert.Len(t, assistant.ThoughtSteps, 1)
	sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	router.AssertExpectations(t)
}

func TestChat_FailureEnvelopeIsNotAnError(t *testing.T) {
	session := &domain.ChatSession{ID: "s-1", Owner: "user-1", Name: "Ops"}
	sessions := new(MockSessionRepository)
	sessions.On("Get", mock.Anything, "s-1").Return(session, nil)
	messages := &messageLog{}

	router := new(MockQueryRouter)
	failure := domain.FailureResponse("maintenance handler failed")
	failure.AgentUsed = "maintenance"
	router.On("RouteQuery", mock.Anything, mock.Anything).Return(failure)

	svc := NewChatService(router, sessions, messages, history.NewLoader(messages, 10))
	resp, err := svc.Chat(context.Background(), "user-1", domain.QueryRequest{Message: "status of PUMP-001", ChatSessionID: "s-1"})

	require.NoError(t, err)
	assert.False(t, resp.Success)
	stored, _ := messages.snapshot()
	require.Len(t, stored, 2)
	assert.Equal(t, "maintenance handler failed", stored[1].Content)
}

func TestChat_CreatesSessionAndGeneratesTitle(t *testing.T) {
	sessions := new(MockSessionRepository)
	var created *domain.ChatSession
	sessions.On("Create", mock.Anything, mock.AnythingOfType("*domain.ChatSession")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*domain.ChatSession) }).
		Return(nil)
	sessions.On("Get", mock.Anything, mock.Anything).Return(func(ctx context.Context, id string) *domain.ChatSession {
		copied := *created
		return &copied
	}, nil)
	sessions.On("Update", mock.Anything, mock.MatchedBy(func(s *domain.ChatSession) bool {
		return s.Name == "Well 001 Porosity"
	})).Return(nil).Once()

	provider := new(MockLLMProvider)
	provider.On("Generate", mock.Anything, mock.Anything, "mock-1").
		Return(&llm.Response{Content: "\"Well 001 Porosity\"\n"}, nil)
	providers := llm.NewRouter("mock")
	providers.RegisterProvider(provider)

	router := new(MockQueryRouter)
	router.On("RouteQuery", mock.Anything, mock.MatchedBy(func(q agent.Query) bool {
		return len(q.History) == 0 && q.Session != nil && q.Session.CollectionContext != nil
	})).Return(okResponse("petrophysics"))

	messages := &messageLog{}
	svc := NewChatService(router, sessions, messages, history.NewLoader(messages, 10),
		WithTitleProvider(providers, time.Second))

	cc := &domain.CollectionContext{CollectionID: "c-1", Name: "Permian", DataItems: []domain.DataItem{{ID: "WELL-001"}}}
	_, err := svc.Chat(context.Background(), "user-1", domain.QueryRequest{Message: "porosity of WELL-001", CollectionContext: cc})
	require.NoError(t, err)
	svc.Wait()

	require.NotNil(t, created)
	assert.Equal(t, "user-1", created.Owner)
	assert.Equal(t, domain.DefaultSessionName, created.Name)
	require.NotNil(t, created.LinkedCollectionID)
	assert.Equal(t, "c-1", *created.LinkedCollectionID)

	stored, _ := messages.snapshot()
	require.Len(t, stored, 2)
	assert.Equal(t, created.ID, stored[0].SessionID)
	sessions.AssertExpectations(t)
	provider.AssertExpectations(t)
}

func TestChat_TitleRetriesOnConflict(t *testing.T) {
	session := &domain.ChatSession{ID: "s-1", Owner: "user-1", Name: domain.DefaultSessionName, Version: 1}
	sessions := new(MockSessionRepository)
	sessions.On("Get", mock.Anything, "s-1").Return(func(ctx context.Context, id string) *domain.ChatSession {
		copied := *session
		return &copied
	}, nil)
	sessions.On("Update", mock.Anything, mock.Anything).Return(domain.ErrConflict).Once()
	sessions.On("Update", mock.Anything, mock.Anything).Return(nil).Once()

	provider := new(MockLLMProvider)
	provider.On("Generate", mock.Anything, mock.Anything, "mock-1").Return(&llm.Response{Content: "Pump Health"}, nil)
	providers := llm.NewRouter("mock")
	providers.RegisterProvider(provider)

	router := new(MockQueryRouter)
	router.On("RouteQuery", mock.Anything, mock.Anything).Return(okResponse("maintenance"))

	messages := &messageLog{}
	svc := NewChatService(router, sessions, messages, history.NewLoader(messages, 10),
		WithTitleProvider(providers, time.Second))

	_, err := svc.Chat(context.Background(), "user-1", domain.QueryRequest{Message: "status of PUMP-001", ChatSessionID: "s-1"})
	require.NoError(t, err)
	svc.Wait()

	sessions.AssertNumberOfCalls(t, "Update", 2)
	// one ownership read plus one read per title attempt
	sessions.AssertNumberOfCalls(t, "Get", 3)
}

func TestChat_TitleFailureIsIgnored(t *testing.T) {
	session := &domain.ChatSession{ID: "s-1", Owner: "user-1", Name: domain.DefaultSessionName}
	sessions := new(MockSessionRepository)
	sessions.On("Get", mock.Anything, "s-1").Return(session, nil)

	provider := new(MockLLMProvider)
	provider.On("Generate", mock.Anything, mock.Anything, "mock-1").Return(nil, errors.New("quota exceeded"))
	providers := llm.NewRouter("mock")
	providers.RegisterProvider(provider)

	router := new(MockQueryRouter)
	router.On("RouteQuery", mock.Anything, mock.Anything).Return(okResponse("renewable"))

	messages := &messageLog{}
	svc := NewChatService(router, sessions, messages, history.NewLoader(messages, 10),
		WithTitleProvider(providers, time.Second))

	resp, err := svc.Chat(context.Background(), "user-1", domain.QueryRequest{Message: "wind farm", ChatSessionID: "s-1"})
	require.NoError(t, err)
	svc.Wait()

	assert.True(t, resp.Success)
	sessions.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestChat_NamedSessionSkipsTitle(t *testing.T) {
	session := &domain.ChatSession{ID: "s-1", Owner: "user-1", Name: "Field review"}
	sessions := new(MockSessionRepository)
	sessions.On("Get", mock.Anything, "s-1").Return(session, nil)

	provider := new(MockLLMProvider)
	providers := llm.NewRouter("mock")
	providers.RegisterProvider(provider)

	router := new(MockQueryRouter)
	router.On("RouteQuery", mock.Anything, mock.Anything).Return(okResponse("edicraft"))

	messages := &messageLog{}
	svc := NewChatService(router, sessions, messages, history.NewLoader(messages, 10),
		WithTitleProvider(providers, time.Second))

	_, err := svc.Chat(context.Background(), "user-1", domain.QueryRequest{Message: "wells operated by Apache", ChatSessionID: "s-1"})
	require.NoError(t, err)
	svc.Wait()

	provider.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestChat_TurnTimeoutBoundsRouting(t *testing.T) {
	session := &domain.ChatSession{ID: "s-1", Owner: "user-1", Name: "Porosity work", Version: 1}
	sessions := new(MockSessionRepository)
	sessions.On("Get", mock.Anything, "s-1").Return(session, nil)
	messages := &messageLog{}

	router := new(MockQueryRouter)
	router.On("RouteQuery", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= 30*time.Second
	}), mock.Anything).Return(domain.FailureResponse("request timed out"))

	svc := NewChatService(router, sessions, messages, history.NewLoader(messages, 10), WithTurnTimeout(30*time.Second))
	resp, err := svc.Chat(context.Background(), "user-1", domain.QueryRequest{Message: "porosity", ChatSessionID: "s-1"})

	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "request timed out", resp.Message)
	stored, _ := messages.snapshot()
	require.Len(t, stored, 2)
	assert.Equal(t, "request timed out", stored[1].Content)
	router.AssertExpectations(t)
}

func TestChat_AgentTypeIsCaseInsensitive(t *testing.T) {
	session := &domain.ChatSession{ID: "s-1", Owner: "user-1", Name: "Wind work", Version: 1}
	sessions := new(MockSessionRepository)
	sessions.On("Get", mock.Anything, "s-1").Return(session, nil)
	messages := &messageLog{}

	router := new(MockQueryRouter)
	router.On("RouteQuery", mock.Anything, mock.MatchedBy(func(q agent.Query) bool {
		return q.AgentType == domain.AgentRenewable
	})).Return(okResponse("renewable"))

	svc := NewChatService(router, sessions, messages, history.NewLoader(messages, 10))
	resp, err := svc.Chat(context.Background(), "user-1", domain.QueryRequest{
		Message:       "layout for 20 turbines",
		ChatSessionID: "s-1",
		AgentType:     "Renewable_Energy",
	})

	require.NoError(t, err)
	assert.Equal(t, "renewable", resp.AgentUsed)
	router.AssertExpectations(t)
}
