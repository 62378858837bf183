// Package sqlite is a local object store backed by a single SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Rrens/energy-agent/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS objects (
	key           TEXT PRIMARY KEY,
	data          BLOB NOT NULL,
	content_type  TEXT NOT NULL DEFAULT '',
	size          INTEGER NOT NULL,
	last_modified INTEGER NOT NULL
)`

// Store implements domain.ObjectStore on SQLite
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path. ":memory:" keeps
// everything in process.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite object store path is required")
	}

	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create objects table: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// List returns objects whose key starts with prefix, in key order
func (s *Store) List(ctx context.Context, prefix string, limit int) ([]domain.ObjectInfo, error) {
	if limit <= 0 {
		limit = 1000
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT key, content_type, size, last_modified
		FROM objects
		WHERE substr(key, 1, ?) = ?
		ORDER BY key
		LIMIT ?
	`, len(prefix), prefix, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	defer rows.Close()

	objects := []domain.ObjectInfo{}
	for rows.Next() {
		var (
			info     domain.ObjectInfo
			modified int64
		)
		if err := rows.Scan(&info.Key, &info.ContentType, &info.Size, &modified); err != nil {
			return nil, fmt.Errorf("failed to scan object: %w", err)
		}
		info.LastModified = time.Unix(0, modified).UTC()
		objects = append(objects, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	return objects, nil
}

// Get returns the object at key
func (s *Store) Get(ctx context.Context, key string) (*domain.Object, error) {
	var (
		obj      domain.Object
		modified int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT key, data, content_type, size, last_modified FROM objects WHERE key = ?
	`, key).Scan(&obj.Key, &obj.Data, &obj.ContentType, &obj.Size, &modified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("object %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	obj.LastModified = time.Unix(0, modified).UTC()
	return &obj, nil
}

// Put creates or replaces the object at key
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return fmt.Errorf("object key is required: %w", domain.ErrValidation)
	}
	if data == nil {
		data = []byte{}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO objects (key, data, content_type, size, last_modified)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			data = excluded.data,
			content_type = excluded.content_type,
			size = excluded.size,
			last_modified = excluded.last_modified
	`, key, data, contentType, len(data), s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}

// Delete removes the given keys and reports how many existed
func (s *Store) Delete(ctx context.Context, keys ...string) (int64, error) {
	var deleted int64
	for _, key := range keys {
		res, err := s.db.ExecContext(ctx, `DELETE FROM objects WHERE key = ?`, key)
		if err != nil {
			return deleted, fmt.Errorf("failed to delete object: %w", err)
		}
		n, _ := res.RowsAffected()
		deleted += n
	}
	return deleted, nil
}

// Close closes the database
func (s *Store) Close(ctx context.Context) error {
	return s.db.Close()
}
