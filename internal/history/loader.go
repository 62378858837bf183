// Package history loads the bounded conversation window a router works with.
package history

import (
	"context"
	"fmt"
	"sort"

	"github.com/Rrens/energy-agent/internal/domain"
)

// DefaultLimit is the number of most recent messages loaded when no limit is given
const DefaultLimit = 10

// Loader fetches prior messages of a chat session
type Loader struct {
	messages     domain.MessageRepository
	defaultLimit int
}

// NewLoader creates a history loader. A non-positive defaultLimit falls back to DefaultLimit.
func NewLoader(messages domain.MessageRepository, defaultLimit int) *Loader {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	return &Loader{messages: messages, defaultLimit: defaultLimit}
}

// Load returns up to limit of the most recent messages of a session, oldest first.
// A session without messages yields an empty slice, not an error.
func (l *Loader) Load(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = l.defaultLimit
	}

	msgs, err := l.messages.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	if len(msgs) == 0 {
		return []domain.Message{}, nil
	}

	// Stores are expected to return ascending order; enforce it and the bound anyway
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}
