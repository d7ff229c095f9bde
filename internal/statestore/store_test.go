package statestore

import (
	"context"
	"testing"
	"time"

	"github.com/emnt/spacesync/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSqliteStore(t *testing.T) *SqliteStore {
	t.Helper()
	database, err := db.NewSqliteDB()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	s, err := NewSqliteStore(context.Background(), database)
	require.NoError(t, err)
	return s
}

func newBadgerStore(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := NewBadgerStore("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	stores := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"sqlite": func(t *testing.T) Store { return newSqliteStore(t) },
		"badger": func(t *testing.T) Store { return newBadgerStore(t) },
	}
	for name, mk := range stores {
		t.Run(name, func(t *testing.T) {
			fn(t, mk(t))
		})
	}
}

func TestStore_Options(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, ok, err := s.GetOption(ctx, "sync_total")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.SetOption(ctx, "sync_total", []byte("42")))
		require.NoError(t, s.SetOption(ctx, "sync_total", []byte("43")))

		v, ok, err := s.GetOption(ctx, "sync_total")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte("43"), v)

		require.NoError(t, s.DeleteOption(ctx, "sync_total"))
		_, ok, err = s.GetOption(ctx, "sync_total")
		require.NoError(t, err)
		assert.False(t, ok)

		// deleting a missing key is not an error
		assert.NoError(t, s.DeleteOption(ctx, "sync_total"))
	})
}

func TestStore_Transients(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		require.NoError(t, s.SetTransient(ctx, "sync_in_progress", []byte("true"), time.Hour))
		v, ok, err := s.GetTransient(ctx, "sync_in_progress")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte("true"), v)

		// options and transients are separate namespaces
		_, ok, err = s.GetOption(ctx, "sync_in_progress")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.DeleteTransient(ctx, "sync_in_progress"))
		_, ok, err = s.GetTransient(ctx, "sync_in_progress")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestStore_TypedHelpers(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		total, err := GetOption(ctx, s, "sync_total", 7)
		require.NoError(t, err)
		assert.Equal(t, 7, total)

		require.NoError(t, SetOption(ctx, s, "sync_total", 120))
		total, err = GetOption(ctx, s, "sync_total", 0)
		require.NoError(t, err)
		assert.Equal(t, 120, total)

		_, ok, err := GetTransient[string](ctx, s, "reverse_sync_marker")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, SetTransient(ctx, s, "reverse_sync_marker", "wp-content/uploads/a.jpg", time.Hour))
		marker, ok, err := GetTransient[string](ctx, s, "reverse_sync_marker")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "wp-content/uploads/a.jpg", marker)
	})
}

func TestStore_TypedHelpers_DecodeError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.SetOption(ctx, "sync_total", []byte("not-json")))

	v, err := GetOption(ctx, s, "sync_total", 5)
	assert.Error(t, err)
	assert.Equal(t, 5, v)
}

func TestMemoryStore_TransientExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore().WithClock(func() time.Time { return now })

	require.NoError(t, s.SetTransient(ctx, "sync_offset", []byte("10"), time.Minute))

	now = now.Add(59 * time.Second)
	_, ok, _ := s.GetTransient(ctx, "sync_offset")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok, _ = s.GetTransient(ctx, "sync_offset")
	assert.False(t, ok)
}

func TestSqliteStore_TransientExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newSqliteStore(t)
	s.now = func() time.Time { return now }

	require.NoError(t, s.SetTransient(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, s.SetTransient(ctx, "b", []byte("2"), time.Hour))

	now = now.Add(2 * time.Minute)
	_, ok, err := s.GetTransient(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	// the lazy purge removed the expired row only
	var rows int
	require.NoError(t, s.db.Get(&rows, `SELECT COUNT(*) FROM transients`))
	assert.Equal(t, 1, rows)

	_, ok, err = s.GetTransient(ctx, "b")
	require.NoError(t, err)
	assert.True(t, ok)
}
