// Package trace records the ordered execution trace (thought steps) of a single
// agent request and mirrors it, best effort, to a session-scoped store.
package trace

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Rrens/energy-agent/internal/domain"
)

// StepType categorizes a step
type StepType string

const (
	TypeIntentDetection     StepType = "intent_detection"
	TypeParameterExtraction StepType = "parameter_extraction"
	TypeToolSelection       StepType = "tool_selection"
	TypeDataRetrieval       StepType = "data_retrieval"
	TypeCalculation         StepType = "calculation"
	TypeValidation          StepType = "validation"
	TypeCompletion          StepType = "completion"
	TypeError               StepType = "error"
	TypeExecution           StepType = "execution"
)

// Context carries domain fields describing what a step worked on
type Context struct {
	WellName     string         `json:"wellName,omitempty"`
	AnalysisType string         `json:"analysisType,omitempty"`
	Method       string         `json:"method,omitempty"`
	S3Key        string         `json:"s3Key,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
}

// merge overlays the non-empty fields of o
func (c *Context) merge(o *Context) *Context {
	if o == nil {
		return c
	}
	if c == nil {
		cp := *o
		return &cp
	}
	if o.WellName != "" {
		c.WellName = o.WellName
	}
	if o.AnalysisType != "" {
		c.AnalysisType = o.AnalysisType
	}
	if o.Method != "" {
		c.Method = o.Method
	}
	if o.S3Key != "" {
		c.S3Key = o.S3Key
	}
	for k, v := range o.Extra {
		if c.Extra == nil {
			c.Extra = make(map[string]any, len(o.Extra))
		}
		c.Extra[k] = v
	}
	return c
}

// Metrics holds timing and volume figures of a step
type Metrics struct {
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	DataSize    int64      `json:"dataSize,omitempty"`
	RecordCount int        `json:"recordCount,omitempty"`
}

// StepError describes why a step failed
type StepError struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// Step is the verbose working form of a thought step
type Step struct {
	ID        string            `json:"id"`
	Type      StepType          `json:"type"`
	Title     string            `json:"title"`
	Summary   string            `json:"summary"`
	Status    domain.StepStatus `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Duration  *time.Duration    `json:"duration,omitempty"`
	Context   *Context          `json:"context,omitempty"`
	Details   any               `json:"details,omitempty"`
	Metrics   Metrics           `json:"metrics"`
	Error     *StepError        `json:"error,omitempty"`
}

// Update is a partial patch applied to a step. Nil fields are left untouched.
type Update struct {
	Title       *string
	Summary     *string
	Context     *Context
	Details     any
	DataSize    *int64
	RecordCount *int
}

// String is a helper for building updates
func String(s string) *string { return &s }

func (s *Step) apply(u *Update) {
	if u == nil {
		return
	}
	if u.Title != nil {
		s.Title = *u.Title
	}
	if u.Summary != nil {
		s.Summary = *u.Summary
	}
	if u.Context != nil {
		s.Context = s.Context.merge(u.Context)
	}
	if u.Details != nil {
		s.Details = u.Details
	}
	if u.DataSize != nil {
		s.Metrics.DataSize = *u.DataSize
	}
	if u.RecordCount != nil {
		s.Metrics.RecordCount = *u.RecordCount
	}
}

func (s *Step) clone() Step {
	cp := *s
	if s.Duration != nil {
		d := *s.Duration
		cp.Duration = &d
	}
	if s.Context != nil {
		ctx := *s.Context
		if s.Context.Extra != nil {
			ctx.Extra = make(map[string]any, len(s.Context.Extra))
			for k, v := range s.Context.Extra {
				ctx.Extra[k] = v
			}
		}
		cp.Context = &ctx
	}
	if s.Metrics.EndTime != nil {
		end := *s.Metrics.EndTime
		cp.Metrics.EndTime = &end
	}
	if s.Error != nil {
		e := *s.Error
		cp.Error = &e
	}
	return cp
}

// Canonical converts the step into its persisted form
func (s Step) Canonical() domain.ThoughtStep {
	ts := domain.ThoughtStep{
		ID:        s.ID,
		Action:    s.Title,
		Reasoning: s.Summary,
		Result:    s.result(),
		Status:    s.Status,
		Timestamp: s.Timestamp,
	}
	if s.Duration != nil {
		ms := s.Duration.Milliseconds()
		ts.Duration = &ms
	}
	return ts
}

func (s Step) result() string {
	payload := map[string]any{"type": s.Type}
	if s.Context != nil {
		payload["context"] = s.Context
	}
	if s.Details != nil {
		payload["details"] = s.Details
	}
	if s.Error != nil {
		payload["error"] = s.Error
	}
	if s.Metrics.RecordCount > 0 {
		payload["recordCount"] = s.Metrics.RecordCount
	}
	if s.Metrics.DataSize > 0 {
		payload["dataSize"] = s.Metrics.DataSize
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%v", s.Details)
	}
	return string(b)
}
