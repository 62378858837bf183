package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Rrens/energy-agent/internal/agent"
	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/Rrens/energy-agent/internal/history"
	"github.com/Rrens/energy-agent/internal/llm"
	"github.com/Rrens/energy-agent/internal/trace"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// QueryRouter routes one chat turn to an agent
type QueryRouter interface {
	RouteQuery(ctx context.Context, q agent.Query) *domain.AgentResponse
}

// ChatService runs a chat turn end to end: session checks, history,
// routing, persistence and title generation
type ChatService struct {
	router       QueryRouter
	sessions     domain.SessionRepository
	messages     domain.MessageRepository
	history      *history.Loader
	providers    *llm.Router
	notifier     trace.Notifier
	historyLimit int
	turnTimeout  time.Duration
	titleTimeout time.Duration
	now          func() time.Time

	titles sync.WaitGroup
}

// ChatOption configures a ChatService
type ChatOption func(*ChatService)

// WithNotifier streams thought steps of every turn
func WithNotifier(n trace.Notifier) ChatOption {
	return func(s *ChatService) { s.notifier = n }
}

// WithTitleProvider enables LLM-generated session titles
func WithTitleProvider(providers *llm.Router, timeout time.Duration) ChatOption {
	return func(s *ChatService) {
		s.providers = providers
		if timeout > 0 {
			s.titleTimeout = timeout
		}
	}
}

// WithHistoryLimit sets how many prior messages a turn sees
func WithHistoryLimit(n int) ChatOption {
	return func(s *ChatService) { s.historyLimit = n }
}

// WithTurnTimeout bounds the time an agent may spend on one turn
func WithTurnTimeout(d time.Duration) ChatOption {
	return func(s *ChatService) { s.turnTimeout = d }
}

// NewChatService creates a new chat service
func NewChatService(router QueryRouter, sessions domain.SessionRepository, messages domain.MessageRepository, loader *history.Loader, opts ...ChatOption) *ChatService {
	s := &ChatService{
		router:       router,
		sessions:     sessions,
		messages:     messages,
		history:      loader,
		titleTimeout: 10 * time.Second,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Chat answers one user message. Handler failures come back as a
// success=false envelope; errors are reserved for request problems
// (validation, missing or foreign session) and storage failures.
func (s *ChatService) Chat(ctx context.Context, userID string, req domain.QueryRequest) (*domain.AgentResponse, error) {
	agentType, ok := domain.ParseAgentType(req.AgentType)
	if !ok {
		return nil, fmt.Errorf("unknown agent type %q: %w", req.AgentType, domain.ErrValidation)
	}

	session, isNew, err := s.session(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	// History is read before the current message is stored so it excludes it
	prior, err := s.history.Load(ctx, session.ID, s.historyLimit)
	if err != nil {
		log.Error().Err(err).Str("session_id", session.ID).Msg("Failed to load chat history")
		prior = []domain.Message{}
	}

	userMsg := &domain.Message{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		Owner:     userID,
		Role:      domain.RoleUser,
		Content:   req.Message,
		CreatedAt: s.now(),
	}
	if err := s.messages.Create(ctx, userMsg); err != nil {
		log.Error().Err(err).Str("session_id", session.ID).Msg("Failed to save user message")
	}

	var recOpts []trace.Option
	if s.notifier != nil {
		recOpts = append(recOpts, trace.WithSession(session.ID, s.notifier))
	}
	rec := trace.NewRecorder(recOpts...)

	routeCtx := ctx
	if s.turnTimeout > 0 {
		var cancel context.CancelFunc
		routeCtx, cancel = context.WithTimeout(ctx, s.turnTimeout)
		defer cancel()
	}

	resp := s.router.RouteQuery(routeCtx, agent.Query{
		Message:           req.Message,
		UserID:            userID,
		AgentType:         agentType,
		FoundationModelID: req.FoundationModelID,
		Session:           session,
		History:           prior,
		Recorder:          rec,
	})

	assistantMsg := &domain.Message{
		ID:           uuid.NewString(),
		SessionID:    session.ID,
		Owner:        userID,
		Role:         domain.RoleAssistant,
		Content:      resp.Message,
		Artifacts:    resp.Artifacts,
		ThoughtSteps: resp.ThoughtSteps,
		AgentUsed:    resp.AgentUsed,
		CreatedAt:    s.now(),
	}
	if err := s.messages.Create(ctx, assistantMsg); err != nil {
		log.Error().Err(err).Str("session_id", session.ID).Msg("Failed to save assistant message")
	}

	if s.providers != nil && (isNew || (session.Name == domain.DefaultSessionName && len(prior) == 0)) {
		s.titles.Add(1)
		go func() {
			defer s.titles.Done()
			s.generateTitle(session.ID, req.Message, req.FoundationModelID)
		}()
	}

	return resp, nil
}

// Wait blocks until pending title generations finish
func (s *ChatService) Wait() {
	s.titles.Wait()
}

// session loads the requested session or creates a new one for a turn without a session id
func (s *ChatService) session(ctx context.Context, userID string, req domain.QueryRequest) (*domain.ChatSession, bool, error) {
	if req.ChatSessionID != "" {
		session, err := s.sessions.Get(ctx, req.ChatSessionID)
		if err != nil {
			return nil, false, err
		}
		if !session.IsOwnedBy(userID) {
			return nil, false, domain.ErrForbidden
		}
		return session, false, nil
	}

	now := s.now()
	session := &domain.ChatSession{
		ID:                uuid.NewString(),
		Owner:             userID,
		Name:              domain.DefaultSessionName,
		CollectionContext: req.CollectionContext,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if req.CollectionContext != nil {
		id := req.CollectionContext.CollectionID
		session.LinkedCollectionID = &id
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, false, fmt.Errorf("failed to create session: %w", err)
	}
	return session, true, nil
}

// generateTitle names the session after its first message
func (s *ChatService) generateTitle(sessionID, firstMessage, model string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.titleTimeout)
	defer cancel()

	provider, model, err := s.providers.Resolve(model)
	if err != nil {
		log.Warn().Err(err).Msg("No LLM provider for title generation")
		return
	}

	resp, err := provider.Generate(ctx, llm.TitleRequest(firstMessage), model)
	if err != nil {
		log.Error().Err(err).Str("provider", provider.Name()).Msg("Failed to generate session title")
		return
	}
	title := llm.CleanTitle(resp.Content)
	if title == "" {
		return
	}

	for attempt := 0; attempt < 2; attempt++ {
		session, err := s.sessions.Get(ctx, sessionID)
		if err != nil {
			log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to get session for title update")
			return
		}
		if session.Name != domain.DefaultSessionName {
			return
		}
		session.Name = title
		session.UpdatedAt = s.now()

		err = s.sessions.Update(ctx, session)
		if err == nil {
			log.Info().Str("session_id", sessionID).Str("title", title).Msg("Updated session title")
			return
		}
		if !errors.Is(err, domain.ErrConflict) {
			log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to update session title")
			return
		}
	}
}
