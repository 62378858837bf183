package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CollectionRepository implements domain.CollectionRepository
type CollectionRepository struct {
	pool *pgxpool.Pool
}

// NewCollectionRepository creates a new collection repository
func NewCollectionRepository(pool *pgxpool.Pool) *CollectionRepository {
	return &CollectionRepository{pool: pool}
}

const collectionColumns = `id, owner, name, description, data_items, created_at, updated_at`

func (r *CollectionRepository) Create(ctx context.Context, c *domain.Collection) error {
	items, err := json.Marshal(c.DataItems)
	if err != nil {
		return fmt.Errorf("failed to marshal data items: %w", err)
	}

	query := `
		INSERT INTO collections (` + collectionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query, c.ID, c.Owner, c.Name, c.Description, items, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func (r *CollectionRepository) Get(ctx context.Context, id string) (*domain.Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections WHERE id = $1`

	c, err := scanCollection(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "collection")
	}
	return c, nil
}

func (r *CollectionRepository) ListByOwner(ctx context.Context, owner string) ([]domain.Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections WHERE owner = $1 ORDER BY name`

	rows, err := r.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	collections := []domain.Collection{}
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		collections = append(collections, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return collections, nil
}

func scanCollection(row pgx.Row) (*domain.Collection, error) {
	var (
		c     domain.Collection
		items []byte
	)
	if err := row.Scan(&c.ID, &c.Owner, &c.Name, &c.Description, &items, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &c.DataItems); err != nil {
		return nil, fmt.Errorf("failed to decode data items: %w", err)
	}
	return &c, nil
}
