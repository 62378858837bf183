package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/Rrens/energy-agent/internal/history"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// StepLister reads the streamed thought steps of a session
type StepLister interface {
	ListSteps(ctx context.Context, sessionID string) ([]domain.ThoughtStep, error)
}

// SessionService handles chat session operations
type SessionService struct {
	sessions    domain.SessionRepository
	messages    domain.MessageRepository
	collections *CollectionService
	history     *history.Loader
	steps       StepLister
	now         func() time.Time
}

// NewSessionService creates a new session service. steps may be nil.
func NewSessionService(
	sessions domain.SessionRepository,
	messages domain.MessageRepository,
	collections *CollectionService,
	loader *history.Loader,
	steps StepLister,
) *SessionService {
	return &SessionService{
		sessions:    sessions,
		messages:    messages,
		collections: collections,
		history:     loader,
		steps:       steps,
		now:         time.Now,
	}
}

// Create creates a session, optionally linked to one of the user's collections
func (s *SessionService) Create(ctx context.Context, userID, name string, collectionID *string) (*domain.ChatSession, error) {
	now := s.now()
	session := &domain.ChatSession{
		ID:        uuid.NewString(),
		Owner:     userID,
		Name:      strings.TrimSpace(name),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if session.Name == "" {
		session.Name = domain.DefaultSessionName
	}

	if collectionID != nil && *collectionID != "" {
		if err := s.link(ctx, userID, session, *collectionID); err != nil {
			return nil, err
		}
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// Get returns a session owned by userID
func (s *SessionService) Get(ctx context.Context, userID, sessionID string) (*domain.ChatSession, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsOwnedBy(userID) {
		return nil, domain.ErrForbidden
	}
	return session, nil
}

// List returns the user's sessions, most recently updated first
func (s *SessionService) List(ctx context.Context, userID string, limit, offset int) ([]domain.ChatSession, error) {
	return s.sessions.ListByOwner(ctx, userID, limit, offset)
}

// Update renames a session or changes its linked collection. An empty
// LinkedCollectionID unlinks the session.
func (s *SessionService) Update(ctx context.Context, userID, sessionID string, input domain.SessionUpdate) (*domain.ChatSession, error) {
	var (
		session *domain.ChatSession
		err     error
	)
	for attempt := 0; attempt < 2; attempt++ {
		session, err = s.Get(ctx, userID, sessionID)
		if err != nil {
			return nil, err
		}

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return nil, fmt.Errorf("session name must not be empty: %w", domain.ErrValidation)
			}
			session.Name = name
		}
		if input.LinkedCollectionID != nil {
			if *input.LinkedCollectionID == "" {
				session.LinkedCollectionID = nil
				session.CollectionContext = nil
			} else if err := s.link(ctx, userID, session, *input.LinkedCollectionID); err != nil {
				return nil, err
			}
		}
		session.UpdatedAt = s.now()

		err = s.sessions.Update(ctx, session)
		if !errors.Is(err, domain.ErrConflict) {
			break
		}
		log.Warn().Str("session_id", sessionID).Msg("Session changed concurrently, retrying update")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	return session, nil
}

// Delete removes a session and its messages
func (s *SessionService) Delete(ctx context.Context, userID, sessionID string) error {
	if _, err := s.Get(ctx, userID, sessionID); err != nil {
		return err
	}
	if err := s.messages.DeleteBySession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session messages: %w", err)
	}
	return s.sessions.Delete(ctx, sessionID)
}

// Messages returns up to limit of the most recent messages, oldest first
func (s *SessionService) Messages(ctx context.Context, userID, sessionID string, limit int) ([]domain.Message, error) {
	if _, err := s.Get(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return s.history.Load(ctx, sessionID, limit)
}

// ThoughtSteps returns the streamed steps of the session's most recent turns
func (s *SessionService) ThoughtSteps(ctx context.Context, userID, sessionID string) ([]domain.ThoughtStep, error) {
	if _, err := s.Get(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	if s.steps == nil {
		return []domain.ThoughtStep{}, nil
	}
	return s.steps.ListSteps(ctx, sessionID)
}

// link snapshots the collection's data items onto the session
func (s *SessionService) link(ctx context.Context, userID string, session *domain.ChatSession, collectionID string) error {
	collection, err := s.collections.Get(ctx, userID, collectionID)
	if err != nil {
		return fmt.Errorf("failed to link collection: %w", err)
	}
	id := collection.ID
	session.LinkedCollectionID = &id
	session.CollectionContext = collection.Snapshot()
	return nil
}
