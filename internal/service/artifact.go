package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Rrens/energy-agent/internal/domain"
)

const maxArtifactList = 1000

// Object key namespaces
const (
	// WellFilesPrefix holds shared raw well files, readable by every user
	WellFilesPrefix = "wells/"
	// SessionArtifactPrefix holds per-session generated artifacts as renewable/<session>/...
	SessionArtifactPrefix = "renewable/"
)

// ArtifactService exposes the object store holding generated artifacts and well files.
// Session artifacts are visible to the session owner only; well files are read-only.
type ArtifactService struct {
	store    domain.ObjectStore
	sessions domain.SessionRepository
}

// NewArtifactService creates a new artifact service
func NewArtifactService(store domain.ObjectStore, sessions domain.SessionRepository) *ArtifactService {
	return &ArtifactService{store: store, sessions: sessions}
}

// List returns objects under prefix. The prefix must name the well files or one
// of the caller's sessions.
func (s *ArtifactService) List(ctx context.Context, userID, prefix string, limit int) ([]domain.ObjectInfo, error) {
	if err := validateKey(prefix); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, userID, prefix); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxArtifactList {
		limit = maxArtifactList
	}
	return s.store.List(ctx, prefix, limit)
}

// Get returns one object
func (s *ArtifactService) Get(ctx context.Context, userID, key string) (*domain.Object, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, userID, key); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, key)
}

// Delete removes objects and reports how many existed. Every key must belong
// to one of the caller's sessions.
func (s *ArtifactService) Delete(ctx context.Context, userID string, keys []string) (int64, error) {
	if len(keys) == 0 {
		return 0, fmt.Errorf("no keys given: %w", domain.ErrValidation)
	}
	for _, key := range keys {
		if err := validateKey(key); err != nil {
			return 0, err
		}
	}
	owned := map[string]bool{}
	for _, key := range keys {
		sessionID, ok := sessionOf(key)
		if !ok {
			return 0, domain.ErrForbidden
		}
		if owned[sessionID] {
			continue
		}
		if err := s.checkSession(ctx, userID, sessionID); err != nil {
			return 0, err
		}
		owned[sessionID] = true
	}
	return s.store.Delete(ctx, keys...)
}

// authorize checks that key (or prefix) falls inside a namespace the user may read
func (s *ArtifactService) authorize(ctx context.Context, userID, key string) error {
	if strings.HasPrefix(key, WellFilesPrefix) {
		return nil
	}
	sessionID, ok := sessionOf(key)
	if !ok {
		return domain.ErrForbidden
	}
	return s.checkSession(ctx, userID, sessionID)
}

func (s *ArtifactService) checkSession(ctx context.Context, userID, sessionID string) error {
	if s.sessions == nil || userID == "" {
		return domain.ErrForbidden
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrForbidden
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if !session.IsOwnedBy(userID) {
		return domain.ErrForbidden
	}
	return nil
}

// sessionOf extracts the session id from renewable/<session>/... keys
func sessionOf(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, SessionArtifactPrefix)
	if !ok {
		return "", false
	}
	sessionID, _, found := strings.Cut(rest, "/")
	if !found || sessionID == "" {
		return "", false
	}
	return sessionID, true
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("object key is required: %w", domain.ErrValidation)
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return fmt.Errorf("invalid object key %q: %w", key, domain.ErrValidation)
	}
	return nil
}
