package domain

import (
	"context"
	"time"
)

// ObjectInfo describes a stored object
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"contentType,omitempty"`
	LastModified time.Time `json:"lastModified"`
}

// Object is a stored blob and its metadata
type Object struct {
	ObjectInfo
	Data []byte `json:"-"`
}

// ObjectStore is a blob store keyed by slash-separated keys.
// Get returns ErrNotFound for a missing key; Delete ignores missing keys.
type ObjectStore interface {
	List(ctx context.Context, prefix string, limit int) ([]ObjectInfo, error)
	Get(ctx context.Context, key string) (*Object, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, keys ...string) (int64, error)
	Close(ctx context.Context) error
}
