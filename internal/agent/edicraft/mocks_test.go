package edicraft

import (
	"context"

	"github.com/Rrens/energy-agent/internal/catalog"
	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockSource mocks a catalog.Source
type MockSource struct {
	mock.Mock
}

func (m *MockSource) Driver() string { return "sqlite" }

func (m *MockSource) Connect(ctx context.Context, cfg catalog.Config) error { return nil }

func (m *MockSource) Close() error { return nil }

func (m *MockSource) HealthCheck(ctx context.Context) error { return nil }

func (m *MockSource) Search(ctx context.Context, f catalog.Filter) ([]catalog.Well, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Well), args.Error(1)
}

// MockResolver mocks the SourceResolver interface
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Source(ctx context.Context) (catalog.Source, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(catalog.Source), args.Error(1)
}

// resolved returns a resolver that always hands out src
func resolved(src catalog.Source) *MockResolver {
	r := new(MockResolver)
	r.On("Source", mock.Anything).Return(src, nil)
	return r
}

// MockStore mocks the ObjectStore interface
type MockStore struct {
	mock.Mock
}

func (m *MockStore) List(ctx context.Context, prefix string, limit int) ([]domain.ObjectInfo, error) {
	args := m.Called(ctx, prefix, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ObjectInfo), args.Error(1)
}

func (m *MockStore) Get(ctx context.Context, key string) (*domain.Object, error) {
	return nil, domain.ErrNotFound
}

func (m *MockStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	return nil
}

func (m *MockStore) Delete(ctx context.Context, keys ...string) (int64, error) {
	return 0, nil
}

func (m *MockStore) Close(ctx context.Context) error {
	return nil
}
