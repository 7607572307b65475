package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/metador-go/ih5/pkg/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	s, err := Open(config.CatalogConfig{
		Type:   TypeSQLite,
		SQLite: config.SQLiteConfig{Path: dbPath},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_DefaultsToSQLite(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	s, err := Open(config.CatalogConfig{SQLite: config.SQLiteConfig{Path: dbPath}})
	require.NoError(t, err)
	defer s.Close()
	require.Equal(t, TypeSQLite, s.kind)
}

func TestOpen_UnsupportedType(t *testing.T) {
	t.Parallel()
	_, err := Open(config.CatalogConfig{Type: "oracle"})
	require.Error(t, err)
}

func TestUpsertAndGet(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	entry := Entry{
		Name:           "measurements",
		Directory:      "/data/chains",
		ChainUUID:      "chain-1",
		HeadPatchIndex: 0,
		HeadPatchUUID:  "patch-1",
		LastSeenAt:     time.Now(),
	}
	require.NoError(t, s.Upsert(ctx, entry))

	got, ok, err := s.Get(ctx, "measurements")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "chain-1", got.ChainUUID)
	require.Equal(t, 0, got.HeadPatchIndex)
}

func TestUpsert_UpdatesExistingRow(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	base := Entry{
		Name:           "measurements",
		Directory:      "/data/chains",
		ChainUUID:      "chain-1",
		HeadPatchIndex: 0,
		HeadPatchUUID:  "patch-1",
		LastSeenAt:     time.Now(),
	}
	require.NoError(t, s.Upsert(ctx, base))

	updated := base
	updated.HeadPatchIndex = 1
	updated.HeadPatchUUID = "patch-2"
	require.NoError(t, s.Upsert(ctx, updated))

	got, ok, err := s.Get(ctx, "measurements")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, got.HeadPatchIndex)
	require.Equal(t, "patch-2", got.HeadPatchUUID)

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestGet_NotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	_, ok, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDelete(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, Entry{
		Name:       "measurements",
		ChainUUID:  "chain-1",
		LastSeenAt: time.Now(),
	}))
	require.NoError(t, s.Delete(ctx, "measurements"))

	_, ok, err := s.Get(ctx, "measurements")
	require.NoError(t, err)
	require.False(t, ok)

	// Deleting an absent row is not an error.
	require.NoError(t, s.Delete(ctx, "measurements"))
}

func TestList_OrderedByName(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, s.Upsert(ctx, Entry{Name: name, ChainUUID: name, LastSeenAt: time.Now()}))
	}

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, []string{"alpha", "mid", "zeta"}, []string{entries[0].Name, entries[1].Name, entries[2].Name})
}
