package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func TestPutGet(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	require.NoError(t, s.Put(ctx, "renewable/s-1/a/layout.json", []byte(`{"type":"FeatureCollection"}`), "application/geo+json"))

	obj, err := s.Get(ctx, "renewable/s-1/a/layout.json")
	require.NoError(t, err)
	assert.Equal(t, `{"type":"FeatureCollection"}`, string(obj.Data))
	assert.Equal(t, "application/geo+json", obj.ContentType)
	assert.Equal(t, int64(28), obj.Size)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), obj.LastModified)
}

func TestPutOverwrites(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", []byte("one"), "text/plain"))
	require.NoError(t, s.Put(ctx, "k", []byte("three"), "text/csv"))

	obj, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "three", string(obj.Data))
	assert.Equal(t, "text/csv", obj.ContentType)
}

func TestGetMissing(t *testing.T) {
	_, err := newStore(t).Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPutRequiresKey(t *testing.T) {
	err := newStore(t).Put(context.Background(), "", []byte("x"), "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestListByPrefix(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for _, key := range []string{"wells/WELL-002/gr.las", "wells/WELL-001/gr.las", "wells_archive/x", "renewable/a"} {
		require.NoError(t, s.Put(ctx, key, []byte("x"), ""))
	}

	objects, err := s.List(ctx, "wells/", 0)
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "wells/WELL-001/gr.las", objects[0].Key)
	assert.Equal(t, "wells/WELL-002/gr.las", objects[1].Key)

	objects, err = s.List(ctx, "", 3)
	require.NoError(t, err)
	assert.Len(t, objects, 3)

	objects, err = s.List(ctx, "missing/", 10)
	require.NoError(t, err)
	assert.NotNil(t, objects)
	assert.Empty(t, objects)
}

func TestDelete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "a", []byte("1"), ""))
	require.NoError(t, s.Put(ctx, "b", []byte("2"), ""))

	n, err := s.Delete(ctx, "a", "b", "missing")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "objects.db")

	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), "k", []byte("v"), ""))
	require.NoError(t, s.Close(context.Background()))

	s, err = Open(context.Background(), path)
	require.NoError(t, err)
	defer s.Close(context.Background())
	obj, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(obj.Data))
}
