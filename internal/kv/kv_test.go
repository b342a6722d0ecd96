// ABOUTME: Contract tests for the memory and SQLite-backed key/value stores
// ABOUTME: Checks set/get/overwrite/delete/take and not-found reporting

package kv

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/household-registry/internal/tabular"
)

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()

	db, err := tabular.Open(tabular.DriverSQLite, filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sqlStore, err := NewSQLStore(context.Background(), db.DB(), db.Driver())
	require.NoError(t, err)

	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": sqlStore,
	}
}

func TestStore_Contract(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.Get(ctx, "magiclink_missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Set(ctx, "magiclink_a", `{"householdId":"HH00001"}`))
			v, err := s.Get(ctx, "magiclink_a")
			require.NoError(t, err)
			assert.Equal(t, `{"householdId":"HH00001"}`, v)

			require.NoError(t, s.Set(ctx, "magiclink_a", "second"))
			v, err = s.Get(ctx, "magiclink_a")
			require.NoError(t, err)
			assert.Equal(t, "second", v)

			require.NoError(t, s.Delete(ctx, "magiclink_a"))
			_, err = s.Get(ctx, "magiclink_a")
			assert.ErrorIs(t, err, ErrNotFound)

			// Deleting twice is fine.
			assert.NoError(t, s.Delete(ctx, "magiclink_a"))
		})
	}
}

func TestStore_Take(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.Take(ctx, "magiclink_missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Set(ctx, "magiclink_b", "payload"))
			v, err := s.Take(ctx, "magiclink_b")
			require.NoError(t, err)
			assert.Equal(t, "payload", v)

			_, err = s.Take(ctx, "magiclink_b")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = s.Get(ctx, "magiclink_b")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_ConcurrentTakeReturnsValueOnce(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Set(ctx, "magiclink_c", "payload"))

			const takers = 8
			var (
				wg  sync.WaitGroup
				got atomic.Int32
			)
			for range takers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := s.Take(ctx, "magiclink_c"); err == nil {
						got.Add(1)
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(1), got.Load())
		})
	}
}

func TestSQLStore_SharesHandleAcrossReopen(t *testing.T) {
	ctx := context.Background()
	db, err := tabular.Open(tabular.DriverSQLite, filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	defer db.Close()

	first, err := NewSQLStore(ctx, db.DB(), db.Driver())
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "k", "v"))

	second, err := NewSQLStore(ctx, db.DB(), db.Driver())
	require.NoError(t, err)
	v, err := second.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestSQLStore_BindPostgres(t *testing.T) {
	s := &SQLStore{postgres: true}
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", s.bind("SELECT a FROM t WHERE x = ? AND y = ?"))

	s.postgres = false
	assert.Equal(t, "x = ?", s.bind("x = ?"))
}
