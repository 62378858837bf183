package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CollectionCache caches collection records
type CollectionCache interface {
	Get(ctx context.Context, id string) (*domain.Collection, error)
	Set(ctx context.Context, c *domain.Collection) error
	Invalidate(ctx context.Context, id string) error
	FlushAll(ctx context.Context) (int64, error)
}

// CollectionService handles data collections
type CollectionService struct {
	repo  domain.CollectionRepository
	cache CollectionCache
	now   func() time.Time
}

// NewCollectionService creates a new collection service. cache may be nil.
func NewCollectionService(repo domain.CollectionRepository, cache CollectionCache) *CollectionService {
	return &CollectionService{repo: repo, cache: cache, now: time.Now}
}

// Create stores a new collection owned by userID
func (s *CollectionService) Create(ctx context.Context, userID string, input domain.CollectionCreate) (*domain.Collection, error) {
	items := make([]domain.DataItem, 0, len(input.DataItems))
	seen := make(map[string]struct{}, len(input.DataItems))
	for _, item := range input.DataItems {
		item.ID = strings.TrimSpace(item.ID)
		if item.ID == "" {
			return nil, fmt.Errorf("data item id is required: %w", domain.ErrValidation)
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		items = append(items, item)
	}

	now := s.now()
	collection := &domain.Collection{
		ID:          uuid.NewString(),
		Owner:       userID,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		DataItems:   items,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, collection); err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	return collection, nil
}

// Get returns a collection owned by userID, reading through the cache
func (s *CollectionService) Get(ctx context.Context, userID, id string) (*domain.Collection, error) {
	collection := s.cached(ctx, id)
	if collection == nil {
		var err error
		collection, err = s.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, collection); err != nil {
				log.Warn().Err(err).Str("collection_id", id).Msg("Failed to cache collection")
			}
		}
	}

	if collection.Owner != userID {
		return nil, domain.ErrForbidden
	}
	return collection, nil
}

// List returns the user's collections
func (s *CollectionService) List(ctx context.Context, userID string) ([]domain.Collection, error) {
	return s.repo.ListByOwner(ctx, userID)
}

// FlushCache drops every cached collection
func (s *CollectionService) FlushCache(ctx context.Context) (int64, error) {
	if s.cache == nil {
		return 0, nil
	}
	return s.cache.FlushAll(ctx)
}

func (s *CollectionService) cached(ctx context.Context, id string) *domain.Collection {
	if s.cache == nil {
		return nil
	}
	collection, err := s.cache.Get(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("collection_id", id).Msg("Collection cache read failed")
		return nil
	}
	return collection
}
