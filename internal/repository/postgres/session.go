package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository implements domain.SessionRepository
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, owner, name, linked_collection_id, collection_context, data_access_log, version, created_at, updated_at`

func (r *SessionRepository) Create(ctx context.Context, session *domain.ChatSession) error {
	collectionJSON, logJSON, err := encodeSession(session)
	if err != nil {
		return err
	}
	if session.Version == 0 {
		session.Version = 1
	}

	query := `
		INSERT INTO chat_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.pool.Exec(ctx, query,
		session.ID,
		session.Owner,
		session.Name,
		session.LinkedCollectionID,
		collectionJSON,
		logJSON,
		session.Version,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.ChatSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM chat_sessions WHERE id = $1`

	s, err := scanSession(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "session")
	}
	return s, nil
}

func (r *SessionRepository) ListByOwner(ctx context.Context, owner string, limit, offset int) ([]domain.ChatSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM chat_sessions
		WHERE owner = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, owner, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []domain.ChatSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// Update writes the session only if its stored version still matches
// session.Version, then bumps the version.
func (r *SessionRepository) Update(ctx context.Context, session *domain.ChatSession) error {
	collectionJSON, logJSON, err := encodeSession(session)
	if err != nil {
		return err
	}

	query := `
		UPDATE chat_sessions
		SET name = $1, linked_collection_id = $2, collection_context = $3,
		    data_access_log = $4, updated_at = $5, version = version + 1
		WHERE id = $6 AND version = $7
	`
	tag, err := r.pool.Exec(ctx, query,
		session.Name,
		session.LinkedCollectionID,
		collectionJSON,
		logJSON,
		session.UpdatedAt,
		session.ID,
		session.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM chat_sessions WHERE id = $1)`, session.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		if !exists {
			return fmt.Errorf("session %s: %w", session.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("session %s at version %d: %w", session.ID, session.Version, domain.ErrConflict)
	}

	session.Version++
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM chat_sessions WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func encodeSession(s *domain.ChatSession) (collectionJSON, logJSON []byte, err error) {
	if s.CollectionContext != nil {
		collectionJSON, err = json.Marshal(s.CollectionContext)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal collection context: %w", err)
		}
	}

	entries := s.DataAccessLog
	if entries == nil {
		entries = []domain.DataAccessLogEntry{}
	}
	logJSON, err = json.Marshal(entries)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal data access log: %w", err)
	}
	return collectionJSON, logJSON, nil
}

func scanSession(row pgx.Row) (*domain.ChatSession, error) {
	var (
		s              domain.ChatSession
		collectionJSON []byte
		logJSON        []byte
	)
	if err := row.Scan(
		&s.ID,
		&s.Owner,
		&s.Name,
		&s.LinkedCollectionID,
		&collectionJSON,
		&logJSON,
		&s.Version,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if len(collectionJSON) > 0 && string(collectionJSON) != "null" {
		s.CollectionContext = &domain.CollectionContext{}
		if err := json.Unmarshal(collectionJSON, s.CollectionContext); err != nil {
			return nil, fmt.Errorf("failed to decode collection context: %w", err)
		}
	}
	if len(logJSON) > 0 {
		if err := json.Unmarshal(logJSON, &s.DataAccessLog); err != nil {
			return nil, fmt.Errorf("failed to decode data access log: %w", err)
		}
	}
	return &s, nil
}
