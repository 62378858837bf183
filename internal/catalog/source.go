// Package catalog searches well header catalogs kept in SQL databases or MongoDB.
package catalog

import (
	"context"
	"time"
)

// Well is one catalog entry
type Well struct {
	ID           string  `json:"id" bson:"_id"`
	Name         string  `json:"name" bson:"name"`
	Operator     string  `json:"operator" bson:"operator"`
	Field        string  `json:"field" bson:"field"`
	Basin        string  `json:"basin,omitempty" bson:"basin,omitempty"`
	Status       string  `json:"status,omitempty" bson:"status,omitempty"`
	Latitude     float64 `json:"latitude" bson:"latitude"`
	Longitude    float64 `json:"longitude" bson:"longitude"`
	TotalDepthFt float64 `json:"totalDepthFt" bson:"total_depth_ft"`
}

// Filter narrows a search. Empty fields match everything; matching is case-insensitive.
type Filter struct {
	NamePrefix string `json:"namePrefix,omitempty"`
	Operator   string `json:"operator,omitempty"`
	Field      string `json:"field,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// IsEmpty reports whether the filter has no criteria
func (f Filter) IsEmpty() bool {
	return f.NamePrefix == "" && f.Operator == "" && f.Field == ""
}

// Config contains source connection parameters
type Config struct {
	DSN        string
	Database   string
	Table      string
	MaxResults int
	Timeout    time.Duration
}

// Source defines a well catalog backend
type Source interface {
	// Driver returns the backend identifier (postgres, mysql, sqlite, mongo)
	Driver() string

	// Connect opens the backend
	Connect(ctx context.Context, cfg Config) error

	// Close releases the connection
	Close() error

	// HealthCheck verifies the connection is alive
	HealthCheck(ctx context.Context) error

	// Search returns wells matching the filter ordered by name
	Search(ctx context.Context, filter Filter) ([]Well, error)
}

// SourceFactory creates a new, unconnected source
type SourceFactory func() Source

const (
	DefaultTable      = "wells"
	DefaultMaxResults = 50
)

func (c Config) withDefaults() Config {
	if c.Table == "" {
		c.Table = DefaultTable
	}
	if c.MaxResults <= 0 {
		c.MaxResults = DefaultMaxResults
	}
	return c
}

// limit clamps the requested limit to the configured maximum
func (c Config) limit(requested int) int {
	if requested <= 0 || requested > c.MaxResults {
		return c.MaxResults
	}
	return requested
}
