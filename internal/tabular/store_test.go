// ABOUTME: Contract tests run against every tabular Store implementation
// ABOUTME: Covers append order, object mapping, updates, hints and missing tables

package tabular

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testColumns = []string{"id", "name", "postal_code"}

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()

	sqliteStore, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteStore.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
	}
}

func runContract(t *testing.T, fn func(t *testing.T, ctx context.Context, s Store)) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.EnsureTable(ctx, "people", testColumns))
			fn(t, ctx, s)
		})
	}
}

func TestStore_AppendAndReadInOrder(t *testing.T) {
	runContract(t, func(t *testing.T, ctx context.Context, s Store) {
		require.NoError(t, s.AppendRow(ctx, "people", []string{"P1", "Aoki", "060-0001"}))
		require.NoError(t, s.AppendRow(ctx, "people", []string{"P2", "Baba", "0600002"}))

		rows, err := s.ReadTable(ctx, "people")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "P1", rows[0].Get("id"))
		assert.Equal(t, "Baba", rows[1].Get("name"))
		assert.Equal(t, "0600002", rows[1].Get("postal_code"))
		assert.Less(t, rows[0].Index, rows[1].Index)
	})
}

func TestStore_AppendRowWidthMismatch(t *testing.T) {
	runContract(t, func(t *testing.T, ctx context.Context, s Store) {
		err := s.AppendRow(ctx, "people", []string{"P1"})
		assert.Error(t, err)
	})
}

func TestStore_AppendObject(t *testing.T) {
	runContract(t, func(t *testing.T, ctx context.Context, s Store) {
		err := s.AppendObject(ctx, "people",
			map[string]string{"id": "P9", "postal_code": "001-0001"},
			map[string]Format{"postal_code": FormatText})
		require.NoError(t, err)

		rows, err := s.ReadTable(ctx, "people")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "P9", rows[0].Get("id"))
		assert.Equal(t, "", rows[0].Get("name"))
		assert.Equal(t, "001-0001", rows[0].Get("postal_code"))
	})
}

func TestStore_AppendObjectUnknownColumn(t *testing.T) {
	runContract(t, func(t *testing.T, ctx context.Context, s Store) {
		err := s.AppendObject(ctx, "people", map[string]string{"nickname": "x"}, nil)
		assert.True(t, errors.Is(err, ErrUnknownColumn))

		err = s.AppendObject(ctx, "people", map[string]string{"id": "x"}, map[string]Format{"id": "0.00"})
		assert.Error(t, err)
	})
}

func TestStore_UpdateRow(t *testing.T) {
	runContract(t, func(t *testing.T, ctx context.Context, s Store) {
		require.NoError(t, s.AppendRow(ctx, "people", []string{"P1", "Aoki", ""}))
		rows, err := s.ReadTable(ctx, "people")
		require.NoError(t, err)

		require.NoError(t, s.UpdateRow(ctx, "people", rows[0].Index, []string{"P1", "Aoyama", "100-0001"}))

		rows, err = s.ReadTable(ctx, "people")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Aoyama", rows[0].Get("name"))

		err = s.UpdateRow(ctx, "people", 999, []string{"P1", "x", ""})
		assert.True(t, errors.Is(err, ErrRowNotFound))
	})
}

func TestStore_MissingTable(t *testing.T) {
	runContract(t, func(t *testing.T, ctx context.Context, s Store) {
		_, err := s.ReadTable(ctx, "ghosts")
		assert.True(t, errors.Is(err, ErrTableNotFound))

		err = s.AppendRow(ctx, "ghosts", []string{"x"})
		assert.True(t, errors.Is(err, ErrTableNotFound))
	})
}

func TestStore_EnsureTableIdempotent(t *testing.T) {
	runContract(t, func(t *testing.T, ctx context.Context, s Store) {
		require.NoError(t, s.AppendRow(ctx, "people", []string{"P1", "Aoki", ""}))
		require.NoError(t, s.EnsureTable(ctx, "people", testColumns))

		rows, err := s.ReadTable(ctx, "people")
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})
}

func TestStore_RejectsBadIdentifiers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	assert.Error(t, s.EnsureTable(ctx, "People; DROP", testColumns))
	assert.Error(t, s.EnsureTable(ctx, "people", []string{"row_index"}))
	assert.Error(t, s.EnsureTable(ctx, "people", []string{"id", "id"}))
	assert.Error(t, s.EnsureTable(ctx, "people", nil))
}

func TestMemoryStore_RecordsFormats(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.EnsureTable(ctx, "people", testColumns))
	require.NoError(t, s.AppendObject(ctx, "people",
		map[string]string{"id": "P1"},
		map[string]Format{"postal_code": FormatText}))

	assert.Equal(t, map[string]Format{"postal_code": FormatText}, s.Formats("people"))
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.EnsureTable(ctx, "people", testColumns))
	require.NoError(t, s.AppendRow(ctx, "people", []string{"P1", "Aoki", ""}))

	rows, err := s.ReadTable(ctx, "people")
	require.NoError(t, err)
	rows[0].Values["name"] = "mutated"

	rows, err = s.ReadTable(ctx, "people")
	require.NoError(t, err)
	assert.Equal(t, "Aoki", rows[0].Get("name"))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("oracle", "x")
	assert.Error(t, err)
}
