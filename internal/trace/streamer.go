package trace

import (
	"context"
	"sync"
	"time"

	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/Rrens/energy-agent/internal/metrics"
	"github.com/rs/zerolog/log"
)

// StepStore persists streamed step snapshots for a session
type StepStore interface {
	SaveStep(ctx context.Context, sessionID string, step domain.ThoughtStep) error
}

type streamItem struct {
	sessionID string
	step      domain.ThoughtStep
}

// Streamer is a best-effort Notifier. Notify enqueues without blocking and a
// single worker writes to the store; a full queue drops the snapshot.
type Streamer struct {
	store        StepStore
	queue        chan streamItem
	writeTimeout time.Duration
	done         chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewStreamer starts the worker goroutine. Call Close to drain and stop it.
func NewStreamer(store StepStore, queueSize int, writeTimeout time.Duration) *Streamer {
	if queueSize <= 0 {
		queueSize = 256
	}
	if writeTimeout <= 0 {
		writeTimeout = 2 * time.Second
	}
	s := &Streamer{
		store:        store,
		queue:        make(chan streamItem, queueSize),
		writeTimeout: writeTimeout,
		done:         make(chan struct{}),
	}
	go s.run()
	return s
}

// Notify implements Notifier
func (s *Streamer) Notify(sessionID string, step Step) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}

	select {
	case s.queue <- streamItem{sessionID: sessionID, step: step.Canonical()}:
	default:
		metrics.ThoughtStepStreamDrops.Inc()
		log.Warn().
			Str("session_id", sessionID).
			Str("step_id", step.ID).
			Msg("thought step stream queue full, update dropped")
	}
}

// Close stops accepting updates and waits until queued ones are written
func (s *Streamer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()
	<-s.done
}

func (s *Streamer) run() {
	defer close(s.done)
	for item := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
		if err := s.store.SaveStep(ctx, item.sessionID, item.step); err != nil {
			metrics.ThoughtStepStreamErrors.Inc()
			log.Warn().
				Err(err).
				Str("session_id", item.sessionID).
				Str("step_id", item.step.ID).
				Msg("failed to stream thought step")
		}
		cancel()
	}
}
