package domain

import (
	"context"
	"time"
)

// Data access log actions
const (
	AccessActionExpandedApproved = "expanded_access_approved"
)

// DefaultSessionName is used until a title has been generated
const DefaultSessionName = "New Chat"

// DataAccessLogEntry records an approval of expanded data access for a session
type DataAccessLogEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	Action       string    `json:"action"`
	CollectionID string    `json:"collectionId,omitempty"`
	UserID       string    `json:"userId"`
	Message      string    `json:"message"`
}

// ChatSession represents a conversation owned by a single user.
// Version is bumped on every successful update and guards concurrent writes.
type ChatSession struct {
	ID                 string               `json:"id"`
	Owner              string               `json:"owner"`
	Name               string               `json:"name"`
	LinkedCollectionID *string              `json:"linkedCollectionId,omitempty"`
	CollectionContext  *CollectionContext   `json:"collectionContext,omitempty"`
	DataAccessLog      []DataAccessLogEntry `json:"dataAccessLog,omitempty"`
	Version            int64                `json:"version"`
	CreatedAt          time.Time            `json:"createdAt"`
	UpdatedAt          time.Time            `json:"updatedAt"`
}

// IsOwnedBy reports whether userID owns the session
func (s *ChatSession) IsOwnedBy(userID string) bool {
	return s != nil && s.Owner == userID
}

// SessionUpdate holds mutable session fields
type SessionUpdate struct {
	Name               *string `json:"name,omitempty" validate:"omitempty,max=255"`
	LinkedCollectionID *string `json:"linkedCollectionId,omitempty" validate:"omitempty,max=128"`
}

// SessionRepository defines the interface for session storage.
// Update is a conditional write on Version and returns ErrConflict when the
// stored version moved on.
type SessionRepository interface {
	Create(ctx context.Context, session *ChatSession) error
	Get(ctx context.Context, id string) (*ChatSession, error)
	ListByOwner(ctx context.Context, owner string, limit, offset int) ([]ChatSession, error)
	Update(ctx context.Context, session *ChatSession) error
	Delete(ctx context.Context, id string) error
}
