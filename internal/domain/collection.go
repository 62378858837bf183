package domain

import (
	"context"
	"time"
)

// DataItem is a single permitted data item of a collection
type DataItem struct {
	ID    string `json:"id" validate:"required,max=128"`
	Name  string `json:"name,omitempty" validate:"omitempty,max=255"`
	Type  string `json:"type,omitempty"`
	S3Key string `json:"s3Key,omitempty"`
}

// CollectionContext is the read-only snapshot of a collection cached on a session
type CollectionContext struct {
	CollectionID string     `json:"collectionId"`
	Name         string     `json:"name"`
	DataItems    []DataItem `json:"dataItems"`
}

// Collection is a named, bounded set of data items
type Collection struct {
	ID          string     `json:"id"`
	Owner       string     `json:"owner"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	DataItems   []DataItem `json:"dataItems"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// CollectionCreate represents collection creation data
type CollectionCreate struct {
	Name        string     `json:"name" validate:"required,max=255"`
	Description string     `json:"description,omitempty" validate:"omitempty,max=2000"`
	DataItems   []DataItem `json:"dataItems" validate:"required,min=1,dive"`
}

// Snapshot converts a collection into the context cached on a session
func (c *Collection) Snapshot() *CollectionContext {
	items := make([]DataItem, len(c.DataItems))
	copy(items, c.DataItems)
	return &CollectionContext{
		CollectionID: c.ID,
		Name:         c.Name,
		DataItems:    items,
	}
}

// CollectionRepository defines the interface for collection storage
type CollectionRepository interface {
	Create(ctx context.Context, collection *Collection) error
	Get(ctx context.Context, id string) (*Collection, error)
	ListByOwner(ctx context.Context, owner string) ([]Collection, error)
}
