package trace

import (
	"fmt"
	"sync"
	"time"

	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Notifier receives step snapshots for a session. Implementations must not block.
type Notifier interface {
	Notify(sessionID string, step Step)
}

// Recorder accumulates the thought steps of one request.
// It is safe for concurrent use; the order of Steps is the order of Add calls.
type Recorder struct {
	mu       sync.Mutex
	steps    []*Step
	index    map[string]*Step
	session  string
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

// Option configures a Recorder
type Option func(*Recorder)

// WithSession enables streaming of every step change for sessionID
func WithSession(sessionID string, notifier Notifier) Option {
	return func(r *Recorder) {
		r.session = sessionID
		r.notifier = notifier
	}
}

// WithLogger sets the logger used for step and warning output
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// NewRecorder creates an empty recorder
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		index:  make(map[string]*Step),
		logger: log.Logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add appends a new in-progress step and returns a snapshot of it
func (r *Recorder) Add(stepType StepType, title, summary string, ctx *Context, details any) Step {
	now := r.now()

	r.mu.Lock()
	step := &Step{
		ID:        uuid.NewString(),
		Type:      stepType,
		Title:     title,
		Summary:   summary,
		Status:    domain.StepInProgress,
		Timestamp: now,
		Context:   (*Context)(nil).merge(ctx),
		Details:   details,
		Metrics:   Metrics{StartTime: now},
	}
	r.steps = append(r.steps, step)
	r.index[step.ID] = step
	snap := step.clone()
	r.mu.Unlock()

	r.logger.Debug().
		Str("step_id", snap.ID).
		Str("type", string(stepType)).
		Str("title", title).
		Msg("thought step started")

	r.stream(snap)
	return snap
}

// Complete marks a step complete, records its duration and applies updates.
// Unknown ids are ignored with a warning.
func (r *Recorder) Complete(id string, updates *Update) bool {
	snap, ok := r.finish(id, domain.StepComplete, func(s *Step) {
		s.apply(updates)
	})
	if !ok {
		return false
	}

	r.logger.Debug().
		Str("step_id", id).
		Dur("duration", *snap.Duration).
		Msg("thought step complete")

	r.stream(snap)
	return true
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Fail marks a step as errored with the error message and, when the error
// carries one, its stack trace.
func (r *Recorder) Fail(id string, err error, ctx *Context) bool {
	if err == nil {
		err = errors.New("unknown error")
	}
	snap, ok := r.finish(id, domain.StepError, func(s *Step) {
		stepErr := &StepError{Message: err.Error()}
		var st stackTracer
		if errors.As(err, &st) {
			stepErr.Stack = fmt.Sprintf("%+v", st.StackTrace())
		}
		s.Error = stepErr
		s.Context = s.Context.merge(ctx)
	})
	if !ok {
		return false
	}

	r.logger.Warn().
		Err(err).
		Str("step_id", id).
		Str("title", snap.Title).
		Msg("thought step failed")

	r.stream(snap)
	return true
}

// Update patches a step without changing its status
func (r *Recorder) Update(id string, updates Update) bool {
	r.mu.Lock()
	step, ok := r.index[id]
	if !ok {
		r.mu.Unlock()
		r.logger.Warn().Str("step_id", id).Msg("update of unknown thought step ignored")
		return false
	}
	step.apply(&updates)
	snap := step.clone()
	r.mu.Unlock()

	r.stream(snap)
	return true
}

// Steps returns a copy of the full ordered trace
func (r *Recorder) Steps() []Step {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Step, len(r.steps))
	for i, s := range r.steps {
		out[i] = s.clone()
	}
	return out
}

// ThoughtSteps returns the trace in its canonical, persisted form
func (r *Recorder) ThoughtSteps() []domain.ThoughtStep {
	steps := r.Steps()
	out := make([]domain.ThoughtStep, len(steps))
	for i, s := range steps {
		out[i] = s.Canonical()
	}
	return out
}

func (r *Recorder) finish(id string, status domain.StepStatus, mutate func(*Step)) (Step, bool) {
	end := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	step, ok := r.index[id]
	if !ok {
		r.logger.Warn().
			Str("step_id", id).
			Str("status", string(status)).
			Msg("transition of unknown thought step ignored")
		return Step{}, false
	}

	mutate(step)
	step.Status = status
	d := end.Sub(step.Metrics.StartTime)
	if d < 0 {
		d = 0
	}
	step.Duration = &d
	step.Metrics.EndTime = &end
	return step.clone(), true
}

func (r *Recorder) stream(step Step) {
	if r.notifier == nil || r.session == "" {
		return
	}
	r.notifier.Notify(r.session, step)
}
