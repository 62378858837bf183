package renewable

import (
	"context"
	"errors"
	"sync"

	"github.com/Rrens/energy-agent/internal/domain"
)

// memStore is an in-memory ObjectStore
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	failPut bool
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStore) List(ctx context.Context, prefix string, limit int) ([]domain.ObjectInfo, error) {
	return nil, nil
}

func (m *memStore) Get(ctx context.Context, key string) (*domain.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.Object{ObjectInfo: domain.ObjectInfo{Key: key, Size: int64(len(data))}, Data: data}, nil
}

func (m *memStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if m.failPut {
		return errors.New("store unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memStore) Delete(ctx context.Context, keys ...string) (int64, error) {
	return 0, nil
}

func (m *memStore) Close(ctx context.Context) error {
	return nil
}
