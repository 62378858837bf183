// Package agent routes chat queries to specialized domain handlers and
// normalizes their output into a single response envelope.
package agent

import (
	"context"

	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/Rrens/energy-agent/internal/trace"
)

// Request is what a handler receives for one turn
type Request struct {
	Message    string
	History    []domain.Message
	SessionID  string
	UserID     string
	Collection *domain.CollectionContext
	Recorder   *trace.Recorder
}

// Result is a handler's output before normalization
type Result struct {
	Success           bool
	Message           string
	Artifacts         []domain.Artifact
	SourceAttribution []domain.SourceAttribution
}

// Handler answers queries for one agent
type Handler interface {
	Handle(ctx context.Context, req Request) (*Result, error)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, req Request) (*Result, error)

func (f HandlerFunc) Handle(ctx context.Context, req Request) (*Result, error) {
	return f(ctx, req)
}

// Handlers is the closed set of concrete agents. A nil entry is reported as unavailable.
type Handlers struct {
	Petrophysics Handler
	Maintenance  Handler
	Renewable    Handler
	EDIcraft     Handler
}
