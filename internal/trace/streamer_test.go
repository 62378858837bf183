package trace

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type memoryStepStore struct {
	mu    sync.Mutex
	saved map[string][]domain.ThoughtStep
	fail  bool
	block chan struct{}
}

func newMemoryStepStore() *memoryStepStore {
	return &memoryStepStore{saved: make(map[string][]domain.ThoughtStep)}
}

func (s *memoryStepStore) SaveStep(ctx context.Context, sessionID string, step domain.ThoughtStep) error {
	if s.block != nil {
		<-s.block
	}
	if s.fail {
		return errors.New("redis unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[sessionID] = append(s.saved[sessionID], step)
	return nil
}

func (s *memoryStepStore) count(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved[sessionID])
}

func TestStreamer_DeliversInOrder(t *testing.T) {
	store := newMemoryStepStore()
	streamer := NewStreamer(store, 16, time.Second)

	r := NewRecorder(WithSession("s-1", streamer))
	a := r.Add(TypeIntentDetection, "first", "", nil, nil)
	r.Complete(a.ID, nil)
	r.Add(TypeCalculation, "second", "", nil, nil)

	streamer.Close()

	require.Equal(t, 3, store.count("s-1"))
	saved := store.saved["s-1"]
	assert.Equal(t, "first", saved[0].Action)
	assert.Equal(t, domain.StepComplete, saved[1].Status)
	assert.Equal(t, "second", saved[2].Action)
}

func TestStreamer_FullQueueDropsWithoutBlocking(t *testing.T) {
	store := newMemoryStepStore()
	store.block = make(chan struct{})
	streamer := NewStreamer(store, 1, time.Second)

	r := NewRecorder(WithSession("s-2", streamer))
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			r.Add(TypeExecution, "step", "", nil, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Add blocked on a full stream queue")
	}

	assert.Len(t, r.Steps(), 10)
	close(store.block)
	streamer.Close()
	assert.Less(t, store.count("s-2"), 10)
}

func TestStreamer_StoreErrorsAreSwallowed(t *testing.T) {
	store := newMemoryStepStore()
	store.fail = true
	streamer := NewStreamer(store, 4, time.Second)

	r := NewRecorder(WithSession("s-3", streamer))
	s := r.Add(TypeExecution, "step", "", nil, nil)
	assert.True(t, r.Complete(s.ID, nil))

	streamer.Close()
	assert.Equal(t, domain.StepComplete, r.Steps()[0].Status)
}

func TestStreamer_NotifyAfterCloseIsIgnored(t *testing.T) {
	store := newMemoryStepStore()
	streamer := NewStreamer(store, 4, time.Second)
	streamer.Close()
	streamer.Close()

	assert.NotPanics(t, func() {
		streamer.Notify("s-4", Step{ID: "late"})
	})
	assert.Equal(t, 0, store.count("s-4"))
}
