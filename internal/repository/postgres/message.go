package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MessageRepository implements domain.MessageRepository
type MessageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

// Create inserts a new message
func (r *MessageRepository) Create(ctx context.Context, message *domain.Message) error {
	query := `
		INSERT INTO chat_messages (id, session_id, owner, role, content, artifacts, thought_steps, agent_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	artifacts := message.Artifacts
	if artifacts == nil {
		artifacts = []domain.Artifact{}
	}
	artifactsJSON, err := json.Marshal(artifacts)
	if err != nil {
		return fmt.Errorf("failed to marshal artifacts: %w", err)
	}

	steps := message.ThoughtSteps
	if steps == nil {
		steps = []domain.ThoughtStep{}
	}
	stepsJSON, err := json.Marshal(steps)
	if err != nil {
		return fmt.Errorf("failed to marshal thought steps: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		message.ID,
		message.SessionID,
		message.Owner,
		message.Role,
		message.Content,
		artifactsJSON,
		stepsJSON,
		message.AgentUsed,
		message.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

// ListBySession retrieves the limit most recent messages of a session, oldest first
func (r *MessageRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	query := `
		SELECT id, session_id, owner, role, content, artifacts, thought_steps, agent_used, created_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var (
			m                        domain.Message
			roleStr                  string
			artifactsJSON, stepsJSON []byte
		)

		if err := rows.Scan(
			&m.ID,
			&m.SessionID,
			&m.Owner,
			&roleStr,
			&m.Content,
			&artifactsJSON,
			&stepsJSON,
			&m.AgentUsed,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = domain.MessageRole(roleStr)

		if len(artifactsJSON) > 0 {
			if err := json.Unmarshal(artifactsJSON, &m.Artifacts); err != nil {
				return nil, fmt.Errorf("failed to decode artifacts: %w", err)
			}
		}
		if len(stepsJSON) > 0 {
			if err := json.Unmarshal(stepsJSON, &m.ThoughtSteps); err != nil {
				return nil, fmt.Errorf("failed to decode thought steps: %w", err)
			}
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	// Reverse to return chronological order (oldest first)
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// DeleteBySession removes every message of a session
func (r *MessageRepository) DeleteBySession(ctx context.Context, sessionID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM chat_messages WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	return nil
}
