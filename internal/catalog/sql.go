package catalog

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// SQLSource searches a wells table through database/sql
type SQLSource struct {
	driver      string
	sqlDriver   string
	placeholder Placeholder
	maxConns    int

	db  *sql.DB
	cfg Config
}

// NewPostgres creates a postgres source (pgx stdlib driver)
func NewPostgres() Source {
	return &SQLSource{driver: "postgres", sqlDriver: "pgx", placeholder: DollarPlaceholder, maxConns: 5}
}

// NewMySQL creates a MySQL source
func NewMySQL() Source {
	return &SQLSource{driver: "mysql", sqlDriver: "mysql", placeholder: QuestionPlaceholder, maxConns: 5}
}

// NewSQLite creates a SQLite source. The DSN is a file path or ":memory:".
func NewSQLite() Source {
	return &SQLSource{driver: "sqlite", sqlDriver: "sqlite", placeholder: QuestionPlaceholder, maxConns: 1}
}

// Driver returns the backend identifier
func (s *SQLSource) Driver() string {
	return s.driver
}

// Connect opens and pings the database
func (s *SQLSource) Connect(ctx context.Context, cfg Config) error {
	cfg = cfg.withDefaults()
	if cfg.DSN == "" {
		return fmt.Errorf("%s catalog dsn is required", s.driver)
	}
	if err := ValidateIdentifier(cfg.Table); err != nil {
		return err
	}

	db, err := sql.Open(s.sqlDriver, cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to open connection: %w", err)
	}

	db.SetMaxOpenConns(s.maxConns)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping: %w", err)
	}

	s.db = db
	s.cfg = cfg
	return nil
}

// DB exposes the underlying handle
func (s *SQLSource) DB() *sql.DB {
	return s.db
}

// Close closes the connection
func (s *SQLSource) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// HealthCheck verifies the connection is alive
func (s *SQLSource) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("not connected")
	}
	return s.db.PingContext(ctx)
}

// Search returns wells matching the filter
func (s *SQLSource) Search(ctx context.Context, f Filter) ([]Well, error) {
	if s.db == nil {
		return nil, fmt.Errorf("not connected")
	}

	query, args, err := BuildSearch(s.cfg.Table, f, s.cfg.limit(f.Limit), s.placeholder)
	if err != nil {
		return nil, err
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog search failed: %w", err)
	}
	defer rows.Close()

	wells := []Well{}
	for rows.Next() {
		var w Well
		if err := rows.Scan(&w.ID, &w.Name, &w.Operator, &w.Field, &w.Basin, &w.Status,
			&w.Latitude, &w.Longitude, &w.TotalDepthFt); err != nil {
			return nil, fmt.Errorf("failed to scan well: %w", err)
		}
		wells = append(wells, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return wells, nil
}
