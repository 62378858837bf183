package domain

import (
	"context"
	"time"
)

// MessageRole represents the sender of a message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Message represents a chat message in a session. Messages are immutable once stored.
type Message struct {
	ID           string        `json:"id"`
	SessionID    string        `json:"sessionId"`
	Owner        string        `json:"owner,omitempty"`
	Role         MessageRole   `json:"role"`
	Content      string        `json:"content"`
	Artifacts    []Artifact    `json:"artifacts,omitempty"`
	ThoughtSteps []ThoughtStep `json:"thoughtSteps,omitempty"`
	AgentUsed    string        `json:"agentUsed,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// MessageRepository defines the interface for message storage.
// ListBySession returns the limit most recent messages, oldest first.
type MessageRepository interface {
	Create(ctx context.Context, message *Message) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]Message, error)
	DeleteBySession(ctx context.Context, sessionID string) error
}
