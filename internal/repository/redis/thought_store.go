package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/Rrens/energy-agent/internal/domain"
)

const (
	thoughtPrefix     = "thoughts:"
	defaultThoughtTTL = time.Hour
)

// ThoughtStore mirrors streamed thought steps per session. Each session is a
// hash of step id to the latest snapshot of that step.
type ThoughtStore struct {
	client *Client
	ttl    time.Duration
}

// NewThoughtStore creates a new thought step store
func NewThoughtStore(client *Client, ttl time.Duration) *ThoughtStore {
	if ttl <= 0 {
		ttl = defaultThoughtTTL
	}
	return &ThoughtStore{client: client, ttl: ttl}
}

// SaveStep stores the latest snapshot of a step
func (s *ThoughtStore) SaveStep(ctx context.Context, sessionID string, step domain.ThoughtStep) error {
	data, err := json.Marshal(step)
	if err != nil {
		return fmt.Errorf("failed to marshal thought step: %w", err)
	}

	key := thoughtPrefix + sessionID
	pipe := s.client.rdb.TxPipeline()
	pipe.HSet(ctx, key, step.ID, data)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save thought step: %w", err)
	}
	return nil
}

// ListSteps returns the mirrored steps of a session ordered by timestamp
func (s *ThoughtStore) ListSteps(ctx context.Context, sessionID string) ([]domain.ThoughtStep, error) {
	raw, err := s.client.rdb.HGetAll(ctx, thoughtPrefix+sessionID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list thought steps: %w", err)
	}
	return decodeSteps(raw)
}

// Clear removes the mirrored steps of a session
func (s *ThoughtStore) Clear(ctx context.Context, sessionID string) error {
	return s.client.rdb.Del(ctx, thoughtPrefix+sessionID).Err()
}

func decodeSteps(raw map[string]string) ([]domain.ThoughtStep, error) {
	steps := make([]domain.ThoughtStep, 0, len(raw))
	for id, data := range raw {
		var step domain.ThoughtStep
		if err := json.Unmarshal([]byte(data), &step); err != nil {
			return nil, fmt.Errorf("failed to decode thought step %s: %w", id, err)
		}
		steps = append(steps, step)
	}
	sort.SliceStable(steps, func(i, j int) bool {
		if steps[i].Timestamp.Equal(steps[j].Timestamp) {
			return steps[i].ID < steps[j].ID
		}
		return steps[i].Timestamp.Before(steps[j].Timestamp)
	})
	return steps, nil
}
